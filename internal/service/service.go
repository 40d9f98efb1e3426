// Package service orchestrates all components: config, DB, COMMS fan-out,
// the action and event registries, and the websocket client.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	comms "github.com/nats-io/nats.go"

	"github.com/AdrianLSY/vera-go-service/internal/config"
	"github.com/AdrianLSY/vera-go-service/pkg/actions"
	"github.com/AdrianLSY/vera-go-service/pkg/auth"
	"github.com/AdrianLSY/vera-go-service/pkg/broker"
	"github.com/AdrianLSY/vera-go-service/pkg/client"
	commspkg "github.com/AdrianLSY/vera-go-service/pkg/comms"
	"github.com/AdrianLSY/vera-go-service/pkg/db"
	"github.com/AdrianLSY/vera-go-service/pkg/events"
)

const logPrefix = "service:service"

// SetupLogging installs the default slog handler at the configured level.
func SetupLogging(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

// Run starts the service, blocks until the connection closes or a
// shutdown signal arrives, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	SetupLogging(cfg.LogLevel)

	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("%s - Starting vera service", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Step 1: Connect to database
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
	}
	defer pool.Close()

	// Step 1b: Run migrations if enabled
	if cfg.RunMigrations {
		migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
		if err != nil {
			return fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
		}
		if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
			return fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
		}
	}

	// Step 2: COMMS fan-out (optional; empty COMMS_URL disables it)
	var sink client.EventSink
	var nc *comms.Conn
	if cfg.COMMSURL != "" {
		nc, err = commspkg.Connect(cfg.COMMSURL, cfg.COMMSName)
		if err != nil {
			return fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
		}
		defer nc.Drain()
		sink = commspkg.NewPublisher(nc, &commspkg.PublisherOpts{EventPrefix: cfg.COMMSEventPrefix})
	}

	// Step 3: Wire the action and event registries
	repo := db.NewRepository(pool)
	issuer := &auth.Issuer{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, Audience: cfg.JWTAudience}
	actionRegistry := actions.NewRegistry(actions.Deps{Repo: repo, Auth: issuer})
	b := broker.New(actionRegistry)
	eventRegistry := events.NewRegistry(b)

	// Step 4: Create the websocket client
	c := client.New(eventRegistry, actionRegistry, client.Options{
		Topic:           cfg.ChannelTopic,
		ProtocolVersion: cfg.ProtocolVersion,
		WriteTimeout:    cfg.WriteTimeout,
		PurgeOnClose:    cfg.PurgeOnClose,
		Sink:            sink,
	})

	// Shut the client down on SIGINT/SIGTERM; Connect returns once the
	// socket closes.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))
			c.Shutdown()
		case <-ctx.Done():
		}
	}()

	slog.Info(fmt.Sprintf("%s - Connecting to %s", logPrefix, cfg.WebsocketURL))
	if err := c.Connect(ctx, cfg.WebsocketURL, cfg.Token); err != nil {
		return fmt.Errorf("%s - connection failed: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}
