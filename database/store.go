package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yeremiapane/forms-api/config"
	"github.com/yeremiapane/forms-api/models"
	"github.com/yeremiapane/forms-api/utils"
)

var (
	// ErrStorage wraps every backend connection or query failure.
	ErrStorage = errors.New("storage error")
	// ErrNotFound is returned by GetSubmission when no row matches.
	ErrNotFound = errors.New("submission not found")
)

// StoredSubmission is what a successful insert reports back.
type StoredSubmission struct {
	ID        uint64    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the one persistence contract shared by the local and relational backends.
type Store interface {
	StoreSubmission(ctx context.Context, formName string, payload map[string]interface{}, userAgent, ip string) (*StoredSubmission, error)
	ListSubmissions(ctx context.Context, formName string, limit, offset int) ([]models.Submission, error)
	ListForms(ctx context.Context) ([]string, error)
	CountSubmissions(ctx context.Context, formName string) (int64, error)
	LatestSubmission(ctx context.Context, formName string) (*time.Time, error)
	GetSubmission(ctx context.Context, formName string, id uint64) (*models.Submission, error)
	SubmissionsAfter(ctx context.Context, afterID uint64, limit int) ([]models.Submission, error)
	MaxSubmissionID(ctx context.Context) (uint64, error)
	Ping(ctx context.Context) error
	Name() string
	Close() error
}

var (
	current Store
	openErr error
	closed  bool
	once    sync.Once
	mu      sync.Mutex
)

// Open returns the process-wide store, creating it on first use.
// A non-empty DATABASE_URL selects the relational backend, otherwise the
// local file is used. Later calls return the same instance (or error),
// and an ErrStorage error once Close has run.
func Open(cfg *config.Config) (Store, error) {
	once.Do(func() {
		s, err := openStore(cfg)
		mu.Lock()
		current, openErr = s, err
		mu.Unlock()
		if err == nil {
			utils.InfoLogger.WithField("backend", s.Name()).Info("storage backend ready")
		}
	})
	mu.Lock()
	defer mu.Unlock()
	if closed {
		return nil, fmt.Errorf("%w: store closed", ErrStorage)
	}
	return current, openErr
}

// Close releases the process-wide store if it was opened. It is safe to call twice.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if current == nil || closed {
		return nil
	}
	closed = true
	return current.Close()
}

func openStore(cfg *config.Config) (Store, error) {
	if cfg.UseRelational() {
		return OpenRelational(RelationalOptions{
			DSN:             cfg.DatabaseURL,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnLifetime,
		})
	}
	return OpenLocal(cfg.DatabaseFile)
}
