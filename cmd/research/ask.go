package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Answer a question from the ingested pages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, pipeline, err := opts.setup(nil)
			if err != nil {
				return err
			}
			defer pipeline.Close()

			return askQuestion(cmd.Context(), pipeline, strings.Join(args, " "))
		},
	}
}
