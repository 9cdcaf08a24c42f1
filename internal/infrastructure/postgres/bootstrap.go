package postgres

import (
	"context"
	"fmt"
	"log/slog"
)

// schema is applied on every startup; each statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS phone_verifications (
		id                VARCHAR(36)  PRIMARY KEY,
		phone             TEXT         NOT NULL,
		username          VARCHAR(100) NOT NULL,
		verification_code VARCHAR(10)  NOT NULL,
		created_at        TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_phone ON phone_verifications (phone)`,
	`CREATE INDEX IF NOT EXISTS idx_username ON phone_verifications (username, created_at DESC)`,
}

// Bootstrap creates the verification table and its indexes if they don't already exist.
func Bootstrap(ctx context.Context, db DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	slog.Info("schema ready", "table", "phone_verifications")
	return nil
}
