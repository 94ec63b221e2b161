package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/clay/amphora-auth/internal/app"
	"github.com/clay/amphora-auth/internal/auth/provider"
	"github.com/clay/amphora-auth/internal/config"
	"github.com/clay/amphora-auth/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var sitesFile string

	root := &cobra.Command{
		Use:           "amphora-auth",
		Short:         "Authentication gateway for multi-tenant content sites",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(sitesFile)
		},
	}
	root.PersistentFlags().StringVar(&sitesFile, "sites", "", "path to the sites file (overrides SITES_FILE)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(sitesFile)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "hash-key <key>",
		Short: "Print a bcrypt hash of an access key for CLAY_ACCESS_KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := provider.HashKey(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	})

	return root
}

func serve(sitesFile string) error {
	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	if sitesFile != "" {
		cfg.SitesFile = sitesFile
	}
	if err := cfg.LoadSites(); err != nil {
		logger.Fatal("failed to load sites", map[string]any{
			"error": err.Error(),
		})
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", map[string]any{
			"error": err.Error(),
		})
	}
	if cfg.UsesDefaultSecret() {
		logger.Warn("CLAY_SESSION_SECRET is not set; session cookies use the default secret", nil)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize app", map[string]any{
			"error": err.Error(),
		})
	}

	go func() {
		if err := application.Run(); err != nil {
			logger.Fatal("http server failed", map[string]any{
				"error": err.Error(),
			})
		}
	}()

	logger.Info("amphora-auth started", map[string]any{
		"port":  cfg.AppPort,
		"sites": len(cfg.Sites),
	})

	<-ctx.Done() // wait for Ctrl+C

	logger.Info("shutdown signal received", nil)

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("graceful shutdown failed", map[string]any{
			"error": err.Error(),
		})
	}

	logger.Info("amphora-auth stopped cleanly", nil)
	return nil
}
