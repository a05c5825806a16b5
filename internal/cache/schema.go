package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "embed"
)

// schemaSQL is the version 1 layout; later versions are reached through upgrades.
//
//go:embed schema.sql
var schemaSQL string

// upgrades[i] moves the schema from version i+1 to i+2.
var upgrades = []string{
	"CREATE INDEX IF NOT EXISTS idx_post_cache_created_at ON post_cache(created_at)",
}

const schemaVersion = 2

func migrate(ctx context.Context, db *sql.DB) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	version, err := storedVersion(ctx, tx)
	if err != nil {
		return err
	}
	if version > schemaVersion {
		return fmt.Errorf("cache schema version %d is newer than supported %d", version, schemaVersion)
	}

	for v := version; v < schemaVersion; v++ {
		if _, err = tx.ExecContext(ctx, upgrades[v-1]); err != nil {
			return fmt.Errorf("upgrade schema to version %d: %w", v+1, err)
		}
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO metadata(key, value) VALUES('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, strconv.Itoa(schemaVersion)); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}

	return tx.Commit()
}

// storedVersion reads the recorded version. A database without one holds
// only the base layout.
func storedVersion(ctx context.Context, tx *sql.Tx) (int, error) {
	var s string
	err := tx.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("parse schema version %q", s)
	}
	return v, nil
}
