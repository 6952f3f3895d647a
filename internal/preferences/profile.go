package preferences

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const profileSchema = `CREATE TABLE IF NOT EXISTS user_profiles (
	user_id TEXT PRIMARY KEY,
	search_preferences TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// ProfileBackend stores preferences on the user's profile row in SQLite.
type ProfileBackend struct {
	db   *sql.DB
	path string
}

// OpenProfileBackend opens (creating if needed) the profile database at path.
func OpenProfileBackend(path string) (*ProfileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure profile directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(profileSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &ProfileBackend{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (p *ProfileBackend) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Name implements Backend.
func (p *ProfileBackend) Name() string { return "profile" }

// Load implements Backend.
func (p *ProfileBackend) Load(ctx context.Context, userID string) (Preferences, bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Preferences{}, false, ErrUnavailable
	}
	var raw string
	err := p.db.QueryRowContext(ctx, "SELECT search_preferences FROM user_profiles WHERE user_id = ?", userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Preferences{}, false, nil
	}
	if err != nil {
		return Preferences{}, false, fmt.Errorf("query profile: %w", err)
	}
	prefs, ok, err := decode([]byte(raw))
	if err != nil {
		return Preferences{}, false, fmt.Errorf("decode profile preferences: %w", err)
	}
	return prefs, ok, nil
}

// Save implements Backend.
func (p *ProfileBackend) Save(ctx context.Context, userID string, prefs Preferences) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUnavailable
	}
	data, err := encode(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO user_profiles (user_id, search_preferences, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET search_preferences = excluded.search_preferences, updated_at = excluded.updated_at`,
		userID, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
