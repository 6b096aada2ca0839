package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"mindful-resolve/internal/model"
)

var (
	ErrDuplicateCode = errors.New("session code already exists")
	// ErrConflict means a conditional update matched no row because another
	// writer got there first.
	ErrConflict = errors.New("session was updated concurrently")
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByCode(ctx context.Context, code string) (*model.Session, error) {
	var session model.Session
	if err := r.db.WithContext(ctx).Where("session_code = ?", code).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	return &session, nil
}

// UpdatePartner2 writes the joiner's fields only while the seat is still empty.
func (r *SessionRepository) UpdatePartner2(ctx context.Context, code, name, perspective string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("session_code = ? AND (partner2_perspective IS NULL OR partner2_perspective = '')", code).
		Updates(map[string]interface{}{
			"partner2_name":        name,
			"partner2_perspective": perspective,
		})
	if result.Error != nil {
		return fmt.Errorf("update partner2 failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// UpdateSolution stores the solution only if none has been stored yet.
func (r *SessionRepository) UpdateSolution(ctx context.Context, code, solution string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("session_code = ? AND (solution IS NULL OR solution = '')", code).
		Update("solution", solution)
	if result.Error != nil {
		return fmt.Errorf("update solution failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (r *SessionRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&model.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete expired sessions failed: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry")
}
