package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yeremiapane/forms-api/models"
	"github.com/yeremiapane/forms-api/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormStore holds the queries both backends share; only the dialector and
// connection setup differ between them.
type gormStore struct {
	db   *gorm.DB
	name string
	now  func() time.Time
}

func newGormLogger() logger.Interface {
	return logger.New(
		utils.InfoLogger.WithField("component", "gorm"),
		logger.Config{SlowThreshold: time.Second, LogLevel: logger.Warn, IgnoreRecordNotFoundError: true, Colorful: false},
	)
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:  newGormLogger(),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// migrate creates tables and indexes; safe to run on every start.
func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Submission{}, &models.ApplySubmission{}); err != nil {
		return fmt.Errorf("%w: migrate: %w", ErrStorage, err)
	}
	return nil
}

func (s *gormStore) Name() string { return s.name }

func (s *gormStore) StoreSubmission(ctx context.Context, formName string, payload map[string]interface{}, userAgent, ip string) (*StoredSubmission, error) {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode payload: %w", ErrStorage, err)
	}

	// Millisecond precision survives every engine's timestamp type.
	createdAt := s.now().UTC().Truncate(time.Millisecond)
	sub := models.Submission{
		FormName:  formName,
		Payload:   datatypes.JSON(raw),
		UserAgent: nullable(userAgent),
		IP:        nullable(ip),
		CreatedAt: createdAt,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sub).Error; err != nil {
			return err
		}
		if formName != models.ApplyFormName {
			return nil
		}
		apply := models.MapApplyPayload(payload)
		apply.UserAgent = nullable(userAgent)
		apply.IP = nullable(ip)
		apply.CreatedAt = createdAt
		apply.Payload = datatypes.JSON(raw)
		return tx.Create(&apply).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%w: insert submission: %w", ErrStorage, err)
	}

	return &StoredSubmission{ID: sub.ID, CreatedAt: sub.CreatedAt}, nil
}

func (s *gormStore) ListSubmissions(ctx context.Context, formName string, limit, offset int) ([]models.Submission, error) {
	if limit <= 0 {
		return []models.Submission{}, nil
	}
	if offset < 0 {
		offset = 0
	}
	var subs []models.Submission
	err := s.db.WithContext(ctx).
		Where("form_name = ?", formName).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list submissions: %w", ErrStorage, err)
	}
	if subs == nil {
		subs = []models.Submission{}
	}
	return subs, nil
}

func (s *gormStore) ListForms(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).
		Model(&models.Submission{}).
		Distinct().
		Order("form_name ASC").
		Pluck("form_name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list forms: %w", ErrStorage, err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (s *gormStore) CountSubmissions(ctx context.Context, formName string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("form_name = ?", formName).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("%w: count submissions: %w", ErrStorage, err)
	}
	return n, nil
}

func (s *gormStore) LatestSubmission(ctx context.Context, formName string) (*time.Time, error) {
	var sub models.Submission
	res := s.db.WithContext(ctx).
		Select("id", "created_at").
		Where("form_name = ?", formName).
		Order("created_at DESC").
		Order("id DESC").
		Limit(1).
		Find(&sub)
	if res.Error != nil {
		return nil, fmt.Errorf("%w: latest submission: %w", ErrStorage, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	latest := sub.CreatedAt
	return &latest, nil
}

func (s *gormStore) GetSubmission(ctx context.Context, formName string, id uint64) (*models.Submission, error) {
	var sub models.Submission
	err := s.db.WithContext(ctx).
		Where("id = ? AND form_name = ?", id, formName).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get submission: %w", ErrStorage, err)
	}
	return &sub, nil
}

// SubmissionsAfter returns up to limit submissions of any form with an id
// greater than afterID, oldest first.
func (s *gormStore) SubmissionsAfter(ctx context.Context, afterID uint64, limit int) ([]models.Submission, error) {
	if limit <= 0 {
		return []models.Submission{}, nil
	}
	var subs []models.Submission
	err := s.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: submissions after %d: %w", ErrStorage, afterID, err)
	}
	if subs == nil {
		subs = []models.Submission{}
	}
	return subs, nil
}

// MaxSubmissionID is the highest id stored so far, or 0 for an empty table.
func (s *gormStore) MaxSubmissionID(ctx context.Context) (uint64, error) {
	var maxID uint64
	err := s.db.WithContext(ctx).
		Model(&models.Submission{}).
		Select("COALESCE(MAX(id), 0)").
		Scan(&maxID).Error
	if err != nil {
		return 0, fmt.Errorf("%w: max submission id: %w", ErrStorage, err)
	}
	return maxID, nil
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrStorage, err)
	}
	return nil
}

func (s *gormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
