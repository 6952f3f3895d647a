package preferences

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofrs/flock"

	"gameshelf/internal/fileutil"
)

const (
	anonymousUser  = "anonymous"
	lockRetryDelay = 10 * time.Millisecond
)

// LocalBackend keeps preferences in a JSON file on disk, keyed by user, and
// guards read-modify-write cycles with a file lock.
type LocalBackend struct {
	path string
	lock *flock.Flock
}

// NewLocalBackend builds the local fallback tier at path.
func NewLocalBackend(path string) *LocalBackend {
	return &LocalBackend{path: path, lock: flock.New(path + ".lock")}
}

// Name implements Backend.
func (l *LocalBackend) Name() string { return "local" }

func userKey(userID string) string {
	if userID = strings.TrimSpace(userID); userID == "" {
		return anonymousUser
	}
	return userID
}

// Load implements Backend.
func (l *LocalBackend) Load(ctx context.Context, userID string) (Preferences, bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return Preferences{}, false, fmt.Errorf("ensure preference directory: %w", err)
	}
	locked, err := l.lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		return Preferences{}, false, fmt.Errorf("lock preference file: %w", lockErr(err))
	}
	defer func() { _ = l.lock.Unlock() }()

	users, err := l.read()
	if err != nil {
		return Preferences{}, false, err
	}
	data, ok := users[userKey(userID)]
	if !ok {
		return Preferences{}, false, nil
	}
	return decode(data)
}

// Save implements Backend.
func (l *LocalBackend) Save(ctx context.Context, userID string, prefs Preferences) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("ensure preference directory: %w", err)
	}
	locked, err := l.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		return fmt.Errorf("lock preference file: %w", lockErr(err))
	}
	defer func() { _ = l.lock.Unlock() }()

	users, err := l.read()
	if err != nil {
		return err
	}
	data, err := encode(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	users[userKey(userID)] = data

	payload, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("encode preference file: %w", err)
	}
	if err := fileutil.WriteFileAtomic(l.path, payload, 0o644); err != nil {
		return fmt.Errorf("write preference file: %w", err)
	}
	return nil
}

func (l *LocalBackend) read() (map[string]json.RawMessage, error) {
	users := make(map[string]json.RawMessage)
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return users, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read preference file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return users, nil
	}
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("decode preference file: %w", err)
	}
	return users, nil
}

func lockErr(err error) error {
	if err != nil {
		return err
	}
	return errors.New("lock not acquired")
}
