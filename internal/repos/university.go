package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studypath/studypath-backend/internal/logger"
	"github.com/studypath/studypath-backend/internal/types"
)

// UniversityRepo is the read-mostly catalog store. Writes happen only
// through seeding.
type UniversityRepo interface {
	Create(ctx context.Context, tx *gorm.DB, universities []*types.University) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.University, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.University, error)
	GetByCountry(ctx context.Context, tx *gorm.DB, country string) ([]*types.University, error)
	DistinctCountries(ctx context.Context, tx *gorm.DB) ([]string, error)
	CountByCountry(ctx context.Context, tx *gorm.DB, country string) (int64, error)
	CountryExists(ctx context.Context, tx *gorm.DB, country string) (bool, error)
	List(ctx context.Context, tx *gorm.DB, country, category string) ([]*types.University, error)
}

type universityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUniversityRepo(db *gorm.DB, baseLog *logger.Logger) UniversityRepo {
	return &universityRepo{db: db, log: baseLog.With("repo", "UniversityRepo")}
}

func (r *universityRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *universityRepo) Create(ctx context.Context, tx *gorm.DB, universities []*types.University) error {
	if len(universities) == 0 {
		return nil
	}
	return r.conn(tx).WithContext(ctx).Create(&universities).Error
}

func (r *universityRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.University, error) {
	var uni types.University
	if err := r.conn(tx).WithContext(ctx).
		Where("id = ?", id).
		First(&uni).Error; err != nil {
		return nil, err
	}
	return &uni, nil
}

func (r *universityRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.University, error) {
	var results []*types.University
	if len(ids) == 0 {
		return results, nil
	}
	if err := r.conn(tx).WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *universityRepo) GetByCountry(ctx context.Context, tx *gorm.DB, country string) ([]*types.University, error) {
	var results []*types.University
	if err := r.conn(tx).WithContext(ctx).
		Where("country = ?", country).
		Order("ranking ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *universityRepo) DistinctCountries(ctx context.Context, tx *gorm.DB) ([]string, error) {
	var countries []string
	if err := r.conn(tx).WithContext(ctx).
		Model(&types.University{}).
		Distinct("country").
		Order("country ASC").
		Pluck("country", &countries).Error; err != nil {
		return nil, err
	}
	return countries, nil
}

func (r *universityRepo) CountByCountry(ctx context.Context, tx *gorm.DB, country string) (int64, error) {
	var count int64
	if err := r.conn(tx).WithContext(ctx).
		Model(&types.University{}).
		Where("country = ?", country).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *universityRepo) CountryExists(ctx context.Context, tx *gorm.DB, country string) (bool, error) {
	count, err := r.CountByCountry(ctx, tx, country)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *universityRepo) List(ctx context.Context, tx *gorm.DB, country, category string) ([]*types.University, error) {
	q := r.conn(tx).WithContext(ctx).Model(&types.University{})
	if country != "" {
		q = q.Where("country = ?", country)
	}
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var results []*types.University
	if err := q.Order("ranking ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
