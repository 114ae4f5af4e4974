package main

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/ubnt-intrepid/msgpack-rpc-go/rpc"
	"github.com/ubnt-intrepid/msgpack-rpc-go/transport/tcp"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Listen on a TCP address and answer the demo methods for every peer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ln, err := tcp.Listen(addr)
			if err != nil {
				return err
			}
			defer ln.Close()

			ctx, cancel := rootContext()
			defer cancel()

			fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", ln.Addr())
			return ln.Serve(ctx, func(conn net.Conn) {
				go serveConn(ctx, conn)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7890", "address to listen on")
	return cmd
}

func serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	handler := newDemoHandler()
	_, endpoint := rpc.NewEndpoint(ctx, conn)
	_ = endpoint.Serve(handler)
}
