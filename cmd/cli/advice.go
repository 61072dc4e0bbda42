package main

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/dvloznov/finansmanager/internal/advice"
	"github.com/dvloznov/finansmanager/internal/bootstrap"
	"github.com/dvloznov/finansmanager/internal/config"
	"github.com/dvloznov/finansmanager/internal/llm"
	"github.com/dvloznov/finansmanager/internal/store"
)

var adviceRaw bool

var adviceCmd = &cobra.Command{
	Use:   "advice",
	Short: "Analyze your expenses and investments",
	Long: `Summarizes the legacy expenses and investments together with the
logged transactions and prints a short financial analysis. The analysis is
written by the model when an API key is configured, otherwise from a
template (see advice.mode).`,
	RunE: runAdvice,
}

func init() {
	adviceCmd.Flags().BoolVar(&adviceRaw, "raw", false, "print Markdown without terminal rendering")
}

func runAdvice(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withRepository(ctx, func(repo store.Repository) error {
		records, err := advice.Collect(ctx, repo, userID())
		if err != nil {
			return err
		}

		var model llm.Model
		if cfg.AdviceMode() == config.AdviceModeModel {
			if model, err = bootstrap.NewModel(ctx, cfg); err != nil {
				return err
			}
		}
		analyst, err := bootstrap.NewAnalyst(cfg, model, log)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Analyzing %s data (%s mode)...\n", userID(), analyst.Mode())
		text, err := analyst.Analyze(ctx, records)
		if err != nil {
			return err
		}

		if !adviceRaw {
			if rendered, err := renderMarkdown(text); err == nil {
				text = rendered
			} else {
				log.Warn().Err(err).Msg("Failed to render Markdown")
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	})
}

func renderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return "", fmt.Errorf("renderMarkdown: %w", err)
	}
	return r.Render(md)
}
