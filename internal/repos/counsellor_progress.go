package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studypath/studypath-backend/internal/counsellor"
	"github.com/studypath/studypath-backend/internal/logger"
	"github.com/studypath/studypath-backend/internal/types"
)

type CounsellorProgressRepo interface {
	// GetOrCreate loads the user's progress record, lazily creating one at
	// the country stage on first access.
	GetOrCreate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.CounsellorProgress, error)
	Save(ctx context.Context, tx *gorm.DB, progress *types.CounsellorProgress) error
}

type counsellorProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCounsellorProgressRepo(db *gorm.DB, baseLog *logger.Logger) CounsellorProgressRepo {
	return &counsellorProgressRepo{db: db, log: baseLog.With("repo", "CounsellorProgressRepo")}
}

func (r *counsellorProgressRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *counsellorProgressRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.CounsellorProgress, error) {
	var progress types.CounsellorProgress
	err := r.conn(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		First(&progress).Error
	if err == nil {
		return &progress, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	fresh := counsellor.NewProgress(userID)
	if err := r.conn(tx).WithContext(ctx).Create(fresh).Error; err != nil {
		return nil, err
	}
	return fresh, nil
}

func (r *counsellorProgressRepo) Save(ctx context.Context, tx *gorm.DB, progress *types.CounsellorProgress) error {
	return r.conn(tx).WithContext(ctx).Save(progress).Error
}
