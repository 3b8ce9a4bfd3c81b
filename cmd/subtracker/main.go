// Command subtracker runs the subscription tracker.
//
// Usage:
//
//	subtracker serve     HTTP API plus the renewal scheduler
//	subtracker notify    run the renewal pipeline once
//	subtracker migrate   apply database migrations
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/NAJJJB/subscription-tracker/internal/app"
	"github.com/NAJJJB/subscription-tracker/internal/config"
	"github.com/NAJJJB/subscription-tracker/pkg/logger"
)

const serviceName = "subtracker"

// @title Subscription Tracker API
// @version 1.0
// @description Tracks recurring subscriptions and notifies users through their webhooks before renewal.
// @host localhost:8080
// @BasePath /
func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	var verbose bool
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Subscription tracker with webhook renewal reminders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(serveCmd(&verbose))
	root.AddCommand(notifyCmd(&verbose))
	root.AddCommand(migrateCmd(&verbose))

	if err := root.Execute(); err != nil {
		log.Printf("%s: %v", serviceName, err)
		os.Exit(1)
	}
}

func serveCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run the renewal scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), *verbose, func(ctx context.Context, a *app.App) error {
				return a.Start(ctx)
			})
		},
	}
}

func notifyCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Run the renewal pipeline once and print the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), *verbose, func(ctx context.Context, a *app.App) error {
				res, err := a.RunOnce(ctx)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			})
		},
	}
}

func migrateCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), *verbose, func(ctx context.Context, a *app.App) error {
				return a.Migrate(ctx)
			})
		},
	}
}

func withApp(parent context.Context, verbose bool, fn func(ctx context.Context, a *app.App) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	l := logger.NewLogger(cfg.LogsPath, serviceName, level)

	return fn(ctx, app.New(*cfg, l))
}
