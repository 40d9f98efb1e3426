// Package db provides account data clearing.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearAccounts truncates the account tables (revocations, users).
// Schema is preserved; only data is removed. RESTART IDENTITY resets sequences.
func ClearAccounts(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing account tables", clearLogPrefix))

	_, err := pool.Exec(ctx, `TRUNCATE TABLE
		revocations,
		users
		RESTART IDENTITY CASCADE`)
	if err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Account tables cleared", clearLogPrefix))
	return nil
}
