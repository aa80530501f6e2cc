package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newToolsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tools [name...]",
		Short: "List the configured tools, or print the documentation of the named ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprint(out, a.Catalog.Descriptions())
				return nil
			}
			for _, name := range args {
				if _, ok := a.Catalog.Lookup(name); !ok {
					return fmt.Errorf("tool %q is not configured (configured: %v)", name, a.Catalog.Names())
				}
			}
			fmt.Fprintln(out, a.Catalog.Docs(args))
			return nil
		},
	}
}
