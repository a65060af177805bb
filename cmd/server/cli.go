package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/darkodi/sitebuilder/internal/config"
	"github.com/darkodi/sitebuilder/internal/generate"
	"github.com/darkodi/sitebuilder/internal/logger"
	"github.com/darkodi/sitebuilder/internal/sanitize"
	"github.com/darkodi/sitebuilder/internal/validator"
)

// cliClient loads configuration and builds a generation client that logs
// to stderr, keeping stdout clean for the result.
func cliClient() (*generate.Client, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Log.Output = os.Stderr
	log := logger.New(cfg.Log)

	client, err := newGenerateClient(cfg, log, nil)
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

func newGenerateCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "generate <brief...>",
		Short: "Build one site from a brief without storing it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, appErr := validator.NewPromptValidator().ValidatePrompt(strings.Join(args, " "))
			if appErr != nil {
				return appErr
			}

			client, cfg, err := cliClient()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.LLM.Timeout)
			defer cancel()

			raw, err := client.Build(ctx, prompt)
			if err != nil {
				return fmt.Errorf("%s: %w", generate.Classify(err), err)
			}
			html := generate.ParseHTML(raw)
			if html == "" {
				return fmt.Errorf("empty response from AI")
			}
			html = sanitize.Normalize(html)

			if out == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), html)
				return err
			}
			if err := os.WriteFile(out, []byte(html), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✅ Wrote %d bytes to %s\n", len(html), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the document to this file instead of stdout")
	return cmd
}

func newSurpriseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "surprise",
		Short: "Print one random website idea",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, cfg, err := cliClient()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.LLM.Timeout)
			defer cancel()

			idea, err := client.Surprise(ctx)
			if err != nil {
				return fmt.Errorf("%s: %w", generate.Classify(err), err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), idea)
			return err
		},
	}
}
