// Command rpctool is an illustrative CLI around the rpc package: it
// drives the stdio and tcp transports from the command line. It
// is auxiliary, outside the core library's compiled surface.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rpctool",
		Short: "Drive a MessagePack-RPC endpoint from the command line",
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newCallCmd())
	root.AddCommand(newStdioCmd())
	root.AddCommand(newMethodsCmd())
	return root
}

// rootContext returns a context cancelled on SIGINT/SIGTERM, the way a
// long-running serve/stdio subcommand should shut its connections down.
func rootContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
