package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rhuss/askdata/pkg/api"
)

func newAskCmd(opts *options) *cobra.Command {
	var (
		mode     string
		asJSON   bool
		showCode bool
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			req := &api.AskRequest{Question: strings.Join(args, " "), Mode: api.Mode(mode)}
			if apiErr := api.ValidateAskRequest(req); apiErr != nil {
				return apiErr
			}
			resp, err := a.Agent.Answer(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			if resp.Type == api.TypeError {
				return fmt.Errorf("%s", resp.Message)
			}
			fmt.Fprintln(out, resp.Answer)
			if showCode && resp.Code != "" {
				fmt.Fprintf(out, "\n```go\n%s\n```\n", resp.Code)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", string(api.ModeAgent), "Answer mode: agent, summary or plan")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full answer envelope as JSON")
	cmd.Flags().BoolVar(&showCode, "code", false, "Print the code that produced the answer")
	return cmd
}
