// Command seeder writes the built-in persona prompts into the prompt registry
// and prints what the registry holds.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/persona-chat/backend/internal/config"
	"github.com/zhouzirui/persona-chat/backend/internal/logging"
	"github.com/zhouzirui/persona-chat/backend/internal/model/persona"
	"github.com/zhouzirui/persona-chat/backend/internal/registry"
	"github.com/zhouzirui/persona-chat/backend/internal/service/seed"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var statsOnly bool

	cmd := &cobra.Command{
		Use:   "seeder",
		Short: "Set up persona prompts in the prompt registry",
		Long: `Registers the built-in chatbot personas in the prompt registry and
prints registry statistics. Seeding is skipped when the personas already exist.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			logger, err := logging.New(cfg.Log)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			catalog, err := persona.DefaultCatalog()
			if err != nil {
				return err
			}

			prompts, err := registry.OpenSQLite(cfg.Registry.Path)
			if err != nil {
				return fmt.Errorf("open prompt registry: %w", err)
			}
			defer prompts.Close()

			seeder := seed.NewSeeder(prompts, catalog, cfg.Registry.Project, cfg.Registry.Author,
				cmd.OutOrStdout(), logger.Named("seed"))

			ctx := cmd.Context()
			if !statsOnly {
				n, err := seeder.Seed(ctx)
				if err != nil {
					return err
				}
				logger.Debug("seeding finished", zap.Int("registered", n), zap.String("path", cfg.Registry.Path))
			}
			return seeder.PrintStats(ctx)
		},
	}

	cmd.Flags().BoolVar(&statsOnly, "stats", false, "only print persona statistics")
	return cmd
}
