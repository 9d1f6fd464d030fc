// Package tracking stores one run per annotated function in SQLite,
// with its parameters, metrics and text artifacts.
package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Config holds store configuration
type Config struct {
	Path string // Database file path
}

// Store is the SQLite tracking backend
type Store struct {
	conn *sql.DB
	path string
	now  func() time.Time
}

// Open opens or creates the tracking database at cfg.Path
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("database path cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	_, statErr := os.Stat(cfg.Path)
	exists := statErr == nil

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", cfg.Path)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn, path: cfg.Path, now: time.Now}
	if err := s.initSchema(exists); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := os.Chmod(cfg.Path, 0600); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set database permissions: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema(exists bool) error {
	if _, err := s.conn.Exec(EnableWALMode); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := s.conn.Exec(EnableForeignKeys); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ddl := range []string{
		CreateMetaTable,
		CreateRunsTable,
		CreateRunsCreatedIndex,
		CreateRunsModelIndex,
		CreateArtifactsTable,
	} {
		if _, err := tx.Exec(ddl); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
	}

	if !exists {
		now := time.Now().UTC().Format(time.RFC3339)
		for key, value := range map[string]string{
			MetaKeySchemaVersion: SchemaVersion,
			MetaKeyCreatedAt:     now,
		} {
			if _, err := tx.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", key, value); err != nil {
				return fmt.Errorf("failed to insert meta %s: %w", key, err)
			}
		}
	} else {
		var version string
		err := tx.QueryRow("SELECT value FROM meta WHERE key = ?", MetaKeySchemaVersion).Scan(&version)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		if err == nil && version != SchemaVersion {
			return fmt.Errorf("schema version mismatch: database has %s, expected %s", version, SchemaVersion)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// GetMeta retrieves a metadata value by key
func (s *Store) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.conn.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("meta key not found: %s", key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get meta: %w", err)
	}
	return value, nil
}

// HealthCheck verifies connectivity and schema version
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	version, err := s.GetMeta(ctx, MetaKeySchemaVersion)
	if err != nil {
		return err
	}
	if version != SchemaVersion {
		return fmt.Errorf("schema version mismatch: expected %s, got %s", SchemaVersion, version)
	}
	return nil
}
