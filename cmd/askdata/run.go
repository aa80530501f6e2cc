package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rhuss/askdata/pkg/executor"
	"github.com/rhuss/askdata/pkg/static"
	"github.com/rhuss/askdata/pkg/transcript"
)

// newRunCmd executes a file of analysis code through the configured runner,
// the way the agent runs generated code, and prints the rendered result.
func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run <file|->",
		Short: "Run analysis code against the configured tools",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readSource(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			a, err := opts.build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			seq, err := a.Runner.Execute(cmd.Context(), code)
			if err != nil {
				return err
			}
			values, runErr := executor.Collect(seq)

			nz := transcript.New(
				transcript.WithDisplayRows(a.Config.Agent.DisplayRows),
				transcript.WithViews(static.NewViews(a.Files, "")),
			)
			fmt.Fprint(cmd.OutOrStdout(), nz.Render(cmd.Context(), values).Text)
			return runErr
		},
	}
}

func readSource(stdin io.Reader, name string) (string, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("reading code: %w", err)
	}
	return string(data), nil
}
