package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	_ "golang.org/x/crypto/x509roots/fallback" // CA bundle for scratch/distroless images

	"github.com/conveydesk/conveydesk/internal/client"
	"github.com/conveydesk/conveydesk/internal/config"
	"github.com/conveydesk/conveydesk/internal/gateway"
	"github.com/conveydesk/conveydesk/internal/logger"
	"github.com/conveydesk/conveydesk/internal/version"
)

func main() {
	var envFile string

	cmd := &cobra.Command{
		Use:   "conveydesk-ui",
		Short: "ConveyDesk console gateway",
		Long:  `Serves the admin console API: keeps the session in a cookie and forwards /ui-api requests to the conveyancing API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(envFile)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "optional file of environment variables")
	cmd.Version = version.Get().String()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(envFile string) error {
	cfg, err := config.NewConfig(envFile)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		return err
	}

	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)
	slog.SetDefault(appLogger)

	appLogger.Info("starting console gateway", slog.String("version", version.Get().Version))

	apiClient := client.NewClient(cfg.APIBaseURL,
		client.WithTimeout(cfg.HTTPTimeout),
		client.WithLogger(appLogger),
	)

	server, err := gateway.NewServer(cfg, appLogger, apiClient)
	if err != nil {
		appLogger.Error("failed to create console gateway", slog.String("error", err.Error()))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		appLogger.Error("console gateway error", slog.String("error", err.Error()))
		return err
	}

	appLogger.Info("console gateway shutdown complete")
	return nil
}
