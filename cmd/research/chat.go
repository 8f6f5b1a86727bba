package main

import (
	"bufio"
	"os"
	"regexp"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var urlRegex = regexp.MustCompile(`https?://[^\s]+`)

func newChatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive session: paste URLs to ingest them, type anything else to ask",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			_, log, pipeline, err := opts.setup(func(url string) {
				color.Blue("  fetching %s", url)
			})
			if err != nil {
				return err
			}
			defer pipeline.Close()

			color.Cyan("\nChat with your documents (type 'exit' to quit)")

			scanner := bufio.NewScanner(os.Stdin)
			userPrompt := color.New(color.FgGreen).PrintfFunc()

			for {
				userPrompt("\nYou: ")
				if !scanner.Scan() {
					break
				}

				query := strings.TrimSpace(scanner.Text())
				if strings.ToLower(query) == "exit" {
					break
				}
				if query == "" {
					continue
				}

				// Lines containing URLs are ingested; any remaining text is asked.
				if urls := urlRegex.FindAllString(query, -1); len(urls) > 0 {
					if err := runIngestion(ctx, pipeline.ProcessURLs(ctx, urls, nil)); err != nil {
						if ctx.Err() != nil {
							break
						}
						color.Red("Failed to process URLs: %v", err)
						continue
					}
					query = strings.TrimSpace(urlRegex.ReplaceAllString(query, ""))
					if query == "" {
						continue
					}
				}

				if err := askQuestion(ctx, pipeline, query); err != nil {
					log.Error("failed to answer question", "error", err)
					color.Red("Error: %v", err)
				}

				if ctx.Err() != nil {
					break
				}
			}
			return scanner.Err()
		},
	}
}
