package publish

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Records is the durable (item, platform) publish ledger.
type Records struct {
	db *sql.DB
}

func OpenRecords(path string) (*Records, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create publish db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open publish db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping publish db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	slog.Debug("Publish records opened", "path", path)
	return &Records{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run publish db migrations: %w", err)
	}
	return nil
}

func (r *Records) IsPublished(ctx context.Context, itemID, platform string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM published WHERE item_id = ? AND platform = ?`,
		itemID, platform).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check published status: %w", err)
	}
	return count > 0, nil
}

func (r *Records) MarkPublished(ctx context.Context, itemID, platform string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO published (item_id, platform) VALUES (?, ?)
		 ON CONFLICT(item_id, platform) DO NOTHING`,
		itemID, platform)
	if err != nil {
		return fmt.Errorf("failed to mark as published: %w", err)
	}
	return nil
}

func (r *Records) Close() error {
	return r.db.Close()
}
