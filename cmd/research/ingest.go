package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newIngestCmd(opts *options) *cobra.Command {
	var (
		headers map[string]string
		quiet   bool
	)

	cmd := &cobra.Command{
		Use:   "ingest URL [URL...]",
		Short: "Fetch, split, embed and store up to three URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, pipeline, err := opts.setup(nil)
			if err != nil {
				return err
			}
			defer pipeline.Close()

			if quiet {
				chunks, err := pipeline.Ingest(cmd.Context(), args, headers)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\n", chunks)
				return nil
			}

			color.Blue("Processing %d URL(s)", len(args))
			return runIngestion(cmd.Context(), pipeline.ProcessURLs(cmd.Context(), args, headers))
		},
	}
	cmd.Flags().StringToStringVarP(&headers, "header", "H", nil, "Extra request header, e.g. -H Accept-Language=en")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print only the number of stored chunks")
	return cmd
}
