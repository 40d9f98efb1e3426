// Package main is the entrypoint for the vera service (binary name "vera").
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"

	"github.com/AdrianLSY/vera-go-service/internal/config"
	"github.com/AdrianLSY/vera-go-service/internal/service"
	"github.com/AdrianLSY/vera-go-service/pkg/actions"
	"github.com/AdrianLSY/vera-go-service/pkg/db"
)

const usage = `Usage: vera [command]
       vera serve               Connect to the backend and serve actions over the channel.
       vera actions             Print the advertised action descriptors as JSON.
       vera migrate up          Run database migrations.
       vera migrate down        Roll back one migration (optional; not all migrations support down).
       vera migrate status      Show migration status.
       vera ensure-db [name]    Create database if missing (default name: vera_test). Uses DATABASE_URL host/user.
       vera clear               Truncate the account tables; schema is preserved.

Commands:
  serve           (default) Connect to the backend and serve actions.
  actions         Print the action descriptors advertised on join.
  migrate up      Run database migrations only.
  migrate down    Roll back last migration (optional).
  migrate status  Show current migration status.
  ensure-db [name] Create database (e.g. vera_test) on same host as DATABASE_URL; then run tests with that URL.
  clear           Truncate account data; schema preserved.

Environment: WEBSOCKET_URL, TOKEN, JWT_SECRET (serve), DATABASE_URL, MIGRATION_PATH, COMMS_URL.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("vera migrate: require subcommand (up, down, status)")
		}
		sub := args[1]
		switch sub {
		case "up":
			if err := runMigrateUp(); err != nil {
				log.Fatalf("vera migrate up: %v", err)
			}
		case "status":
			if err := runMigrateStatus(); err != nil {
				log.Fatalf("vera migrate status: %v", err)
			}
		case "down":
			if err := runMigrateDown(); err != nil {
				log.Fatalf("vera migrate down: %v", err)
			}
		default:
			log.Fatalf("vera migrate: unknown subcommand %q (use up, down, status)", sub)
		}
		return
	case "clear":
		if err := runClear(); err != nil {
			log.Fatalf("vera clear: %v", err)
		}
		return
	case "ensure-db":
		dbName := "vera_test"
		if len(args) > 1 && args[1] != "" {
			dbName = args[1]
		}
		if err := runEnsureDB(dbName); err != nil {
			log.Fatalf("vera ensure-db: %v", err)
		}
		return
	case "actions":
		if err := runActions(); err != nil {
			log.Fatalf("vera actions: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
		break
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := service.Run(); err != nil {
		log.Fatalf("vera: %v", err)
	}
}

func runMigrateUp() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func runMigrateStatus() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return db.MigrationStatus(ctx, pool, cfg.MigrationPath)
}

func runMigrateDown() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return db.MigrationDown(ctx, pool, cfg.MigrationPath)
}

func runClear() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.ClearAccounts(ctx, pool); err != nil {
		return fmt.Errorf("clear accounts: %w", err)
	}
	return nil
}

func runEnsureDB(dbName string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	u, err := url.Parse(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	// Replace path with target database name; query (e.g. sslmode) is kept on u.RawQuery.
	u.Path = "/" + dbName
	targetURL := u.String()
	ctx := context.Background()
	if err := db.EnsureDatabase(ctx, targetURL); err != nil {
		return err
	}
	fmt.Printf("Database %q is ready.\n", dbName)
	return nil
}

// runActions prints the descriptors exactly as the join payload carries
// them; deps are never touched by Describe.
func runActions() error {
	registry := actions.NewRegistry(actions.Deps{})
	descriptors, err := registry.Describe()
	if err != nil {
		return fmt.Errorf("describe actions: %w", err)
	}
	data, err := json.MarshalIndent(descriptors, "", "  ")
	if err != nil {
		return fmt.Errorf("encode descriptors: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
