package main

import (
	"github.com/spf13/cobra"

	"github.com/ubnt-intrepid/msgpack-rpc-go/rpc"
	"github.com/ubnt-intrepid/msgpack-rpc-go/transport/stdio"
)

func newStdioCmd() *cobra.Command {
	var chunkSize int
	cmd := &cobra.Command{
		Use:   "stdio",
		Short: "Run a MessagePack-RPC endpoint over this process's stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := rootContext()
			defer cancel()

			stream := stdio.NewStdio(chunkSize)
			defer stream.Close()

			handler := newDemoHandler()
			_, endpoint := rpc.NewEndpoint(ctx, stream)
			return endpoint.Serve(handler)
		},
	}
	cmd.Flags().IntVar(&chunkSize, "chunk-size", stdio.DefaultChunkSize, "stdin read chunk size in bytes (0 = line at a time)")
	return cmd
}
