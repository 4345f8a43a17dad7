package main

import (
	"fmt"
	"os"

	"github.com/de-tools/promo-lab/pkg/runtime/app"
	"github.com/de-tools/promo-lab/pkg/server"
	"github.com/de-tools/promo-lab/pkg/services/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the web server for Promo Lab",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to the YAML configuration file (settings can also come from PROMO_* env vars)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := app.NewLogger(cfg.Log, os.Stdout)
	ctx := logger.WithContext(cmd.Context())

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to release resources")
		}
	}()

	api := server.NewWebAPI(logger, server.Config{
		Addr:            cfg.Server.Addr(),
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Dependencies: server.Dependencies{
			Scenarios: a.Scenarios,
			Data:      a.Data,
			Learner:   a.Learner,
		},
	})

	return api.Start()
}
