package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ubnt-intrepid/msgpack-rpc-go/rpc"
	"github.com/ubnt-intrepid/msgpack-rpc-go/transport/tcp"
)

func newCallCmd() *cobra.Command {
	var addr string
	var paramsJSON string
	cmd := &cobra.Command{
		Use:   "call <method>",
		Short: "Dial a peer, issue one request, print the result and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := rootContext()
			defer cancel()

			conn, err := tcp.Dial(ctx, addr)
			if err != nil {
				return err
			}
			defer conn.Close()

			var params []interface{}
			if paramsJSON != "" {
				if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
					return fmt.Errorf("parsing --params as a JSON array: %w", err)
				}
			}

			client, endpoint := rpc.NewEndpoint(ctx, conn)
			done := make(chan error, 1)
			go func() { done <- endpoint.Serve(rpc.UnimplementedHandler{}) }()

			result, callErr := client.Call(ctx, args[0], params)
			conn.Close()
			<-done

			if callErr != nil {
				return callErr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%v\n", result)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7890", "address to dial")
	cmd.Flags().StringVar(&paramsJSON, "params", "", `params as a JSON array, e.g. '["hi"]'`)
	return cmd
}
