// Package cli is the legalrag command line: ingest a directory, ask a
// question, or serve the search tool over MCP.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/akolanti/LegalRAG/internal/app"
	"github.com/akolanti/LegalRAG/internal/config"
	"github.com/akolanti/LegalRAG/pkg/logger_i"
	"github.com/spf13/cobra"
)

// Builder constructs the services once settings are loaded.
type Builder func(ctx context.Context, s config.Settings) (*app.App, error)

type runner struct {
	build    Builder
	envFile  string
	settings config.Settings
}

func NewRootCommand(build Builder) *cobra.Command {
	if build == nil {
		build = func(ctx context.Context, s config.Settings) (*app.App, error) {
			return app.Bootstrap(ctx, s)
		}
	}
	r := &runner{build: build}

	root := &cobra.Command{
		Use:   "legalrag",
		Short: "Legal document retrieval and question answering",
		Long: `legalrag indexes legal PDFs into a vector collection and answers
questions about them with a research then summary model pass.

Configuration comes from the environment, optionally seeded from a .env file.`,
		SilenceUsage:      true,
		PersistentPreRunE: r.loadSettings,
	}
	root.PersistentFlags().StringVar(&r.envFile, "env", ".env", "dotenv file to load before the environment")

	root.AddCommand(r.ingestCommand(), r.askCommand(), r.mcpCommand())
	return root
}

// loadSettings keeps stdout free for command output; logs go to stderr.
func (r *runner) loadSettings(cmd *cobra.Command, _ []string) error {
	s, err := config.Load(r.envFile)
	if err != nil {
		return err
	}
	logger_i.InitWith(os.Stderr, s.LogLevel, s.LogJSON)
	r.settings = s
	return nil
}

func (r *runner) services(ctx context.Context) (*app.App, error) {
	a, err := r.build(ctx, r.settings)
	if err != nil {
		return nil, fmt.Errorf("starting services: %w", err)
	}
	return a, nil
}
