package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/research/pkg/rag"
)

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
}

// runIngestion drains the status stream, printing one line per step. A
// stream closed by cancellation reports ctx.Err().
func runIngestion(ctx context.Context, statuses <-chan rag.Status) error {
	spinner := getSpinner("Processing URLs...")
	defer spinner.Finish()

	for status := range statuses {
		switch {
		case status.Fatal():
			spinner.Finish()
			return status.Err
		case status.Err != nil:
			spinner.Clear()
			color.Yellow("! %s", status.String())
		case status.Chunks > 0:
			spinner.Clear()
			color.Green("✓ %s", status.Message)
		default:
			spinner.Describe(color.CyanString(status.Message))
		}
	}
	return ctx.Err()
}

func askQuestion(ctx context.Context, pipeline *rag.Pipeline, question string) error {
	spinner := getSpinner("Generating answer...")
	answer, sources, err := pipeline.Ask(ctx, question)
	spinner.Finish()

	if errors.Is(err, rag.ErrStoreNotInitialized) {
		color.Red("Please process URLs first before asking questions")
		return nil
	}
	if err != nil {
		return err
	}

	assistant := color.New(color.FgCyan, color.Bold)
	assistant.Println("\nAnswer")
	fmt.Println(answer)

	if sources != "" {
		assistant.Println("\nSources")
		for _, source := range strings.Split(sources, "\n") {
			if source = strings.TrimSpace(source); source != "" {
				fmt.Printf("• %s\n", source)
			}
		}
	}
	return nil
}
