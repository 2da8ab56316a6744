package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/studypath/studypath-backend/internal/logger"
	"github.com/studypath/studypath-backend/internal/types"
)

type UserUniversityRepo interface {
	// Upsert creates the association if the (user, university) pair has no
	// row yet; an existing row is left as-is apart from status/category.
	Upsert(ctx context.Context, tx *gorm.DB, assoc *types.UserUniversity) error
	DeleteByUniversityIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, universityIDs []uuid.UUID) error
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserUniversity, error)
	CountByStatus(ctx context.Context, tx *gorm.DB, userID uuid.UUID, status string) (int64, error)
}

type userUniversityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserUniversityRepo(db *gorm.DB, baseLog *logger.Logger) UserUniversityRepo {
	return &userUniversityRepo{db: db, log: baseLog.With("repo", "UserUniversityRepo")}
}

func (r *userUniversityRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *userUniversityRepo) Upsert(ctx context.Context, tx *gorm.DB, assoc *types.UserUniversity) error {
	if assoc.Status == types.AssociationLocked && assoc.LockedAt == nil {
		now := time.Now()
		assoc.LockedAt = &now
	}
	return r.conn(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "university_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "category"}),
		}).
		Create(assoc).Error
}

func (r *userUniversityRepo) DeleteByUniversityIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, universityIDs []uuid.UUID) error {
	if len(universityIDs) == 0 {
		return nil
	}
	return r.conn(tx).WithContext(ctx).
		Where("user_id = ? AND university_id IN ?", userID, universityIDs).
		Delete(&types.UserUniversity{}).Error
}

func (r *userUniversityRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserUniversity, error) {
	var results []*types.UserUniversity
	if err := r.conn(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *userUniversityRepo) CountByStatus(ctx context.Context, tx *gorm.DB, userID uuid.UUID, status string) (int64, error) {
	var count int64
	if err := r.conn(tx).WithContext(ctx).
		Model(&types.UserUniversity{}).
		Where("user_id = ? AND status = ?", userID, status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
