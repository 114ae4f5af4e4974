package main

import (
	"bytes"

	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
)

func newMethodsCmd() *cobra.Command {
	var asHTML bool
	cmd := &cobra.Command{
		Use:   "methods",
		Short: "Show the demo handler's registered methods and their documentation",
		RunE: func(cmd *cobra.Command, args []string) error {
			source := demoMarkdown()
			if !asHTML {
				cmd.Println(source)
				return nil
			}
			var buf bytes.Buffer
			if err := goldmark.Convert([]byte(source), &buf); err != nil {
				return err
			}
			cmd.Print(buf.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asHTML, "html", false, "render method documentation as HTML instead of raw markdown")
	return cmd
}
