package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const memoryPath = ":memory:"

// LocalStore is the zero-dependency file backend. It keeps a single
// connection so writes are serialized, and holds an exclusive lock file so
// a second process cannot open the same database.
type LocalStore struct {
	*gormStore
	path string
	lock *flock.Flock
}

// OpenLocal opens (creating if needed) the sqlite file at path and migrates it.
// ":memory:" opens a private in-memory database, used by tests.
func OpenLocal(path string) (*LocalStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: empty database file path", ErrStorage)
	}

	var lock *flock.Flock
	if !isMemory(path) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("%w: create data dir: %w", ErrStorage, err)
		}
		lock = flock.New(path + ".lock")
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("%w: lock %s: %w", ErrStorage, path, err)
		}
		if !locked {
			return nil, fmt.Errorf("%w: %s is in use by another process", ErrStorage, path)
		}
	}

	s, err := openSQLite(path)
	if err != nil {
		if lock != nil {
			_ = lock.Unlock()
		}
		return nil, err
	}
	return &LocalStore{gormStore: s, path: path, lock: lock}, nil
}

func openSQLite(path string) (*gormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", ErrStorage, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	// sqlite wants one writer; an in-memory db also lives only as long as its connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: ping sqlite: %w", ErrStorage, err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("%w: %s: %w", ErrStorage, pragma, err)
		}
	}

	if err := migrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &gormStore{
		db:   db,
		name: "sqlite",
		now:  time.Now,
	}, nil
}

// Path is the database file this store was opened on.
func (s *LocalStore) Path() string { return s.path }

func (s *LocalStore) Close() error {
	err := s.gormStore.Close()
	if s.lock != nil {
		if uerr := s.lock.Unlock(); uerr != nil && err == nil {
			err = uerr
		}
	}
	return err
}

func isMemory(path string) bool {
	return path == memoryPath || strings.HasPrefix(path, "file::memory:")
}
