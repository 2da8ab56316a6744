package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studypath/studypath-backend/internal/counsellor"
	"github.com/studypath/studypath-backend/internal/logger"
	"github.com/studypath/studypath-backend/internal/types"
)

// fakeAI replays a scripted sequence of completions. Each call consumes one
// step; a step with a non-nil error returns it, otherwise the text.
type fakeAI struct {
	mu      sync.Mutex
	steps   []fakeAIStep
	calls   int
	prompts []string
}

type fakeAIStep struct {
	text string
	err  error
}

func (f *fakeAI) Complete(ctx context.Context, prompt string, wantJSON bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	i := f.calls
	f.calls++
	if i >= len(f.steps) {
		return "", nil
	}
	return f.steps[i].text, f.steps[i].err
}

type memProgressRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*types.CounsellorProgress
	saves   int
}

func newMemProgressRepo() *memProgressRepo {
	return &memProgressRepo{records: map[uuid.UUID]*types.CounsellorProgress{}}
}

func (r *memProgressRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.CounsellorProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.records[userID]; ok {
		return p, nil
	}
	p := counsellor.NewProgress(userID)
	p.ID = uuid.New()
	r.records[userID] = p
	return p, nil
}

func (r *memProgressRepo) Save(ctx context.Context, tx *gorm.DB, progress *types.CounsellorProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[progress.UserID] = progress
	r.saves++
	return nil
}

type memProfileRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*types.StudentProfile
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{profiles: map[uuid.UUID]*types.StudentProfile{}}
}

func (r *memProfileRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.StudentProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[userID]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memProfileRepo) Upsert(ctx context.Context, tx *gorm.DB, profile *types.StudentProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.UserID] = profile
	return nil
}

func (r *memProfileRepo) Save(ctx context.Context, tx *gorm.DB, profile *types.StudentProfile) error {
	return r.Upsert(ctx, tx, profile)
}

type memUniversityRepo struct {
	mu   sync.Mutex
	unis []*types.University
}

func newMemUniversityRepo(unis ...*types.University) *memUniversityRepo {
	return &memUniversityRepo{unis: unis}
}

func (r *memUniversityRepo) Create(ctx context.Context, tx *gorm.DB, universities []*types.University) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unis = append(r.unis, universities...)
	return nil
}

func (r *memUniversityRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.University, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.unis {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUniversityRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.University, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[uuid.UUID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []*types.University
	for _, u := range r.unis {
		if want[u.ID] {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memUniversityRepo) GetByCountry(ctx context.Context, tx *gorm.DB, country string) ([]*types.University, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.University
	for _, u := range r.unis {
		if u.Country == country {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memUniversityRepo) DistinctCountries(ctx context.Context, tx *gorm.DB) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, u := range r.unis {
		if !seen[u.Country] {
			seen[u.Country] = true
			out = append(out, u.Country)
		}
	}
	return out, nil
}

func (r *memUniversityRepo) CountByCountry(ctx context.Context, tx *gorm.DB, country string) (int64, error) {
	unis, _ := r.GetByCountry(ctx, tx, country)
	return int64(len(unis)), nil
}

func (r *memUniversityRepo) CountryExists(ctx context.Context, tx *gorm.DB, country string) (bool, error) {
	n, _ := r.CountByCountry(ctx, tx, country)
	return n > 0, nil
}

func (r *memUniversityRepo) List(ctx context.Context, tx *gorm.DB, country, category string) ([]*types.University, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.University
	for _, u := range r.unis {
		if country != "" && u.Country != country {
			continue
		}
		if category != "" && !strings.EqualFold(u.Category, category) {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

type assocKey struct {
	userID       uuid.UUID
	universityID uuid.UUID
}

type memAssocRepo struct {
	mu     sync.Mutex
	assocs map[assocKey]*types.UserUniversity
}

func newMemAssocRepo() *memAssocRepo {
	return &memAssocRepo{assocs: map[assocKey]*types.UserUniversity{}}
}

func (r *memAssocRepo) Upsert(ctx context.Context, tx *gorm.DB, assoc *types.UserUniversity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assocs[assocKey{assoc.UserID, assoc.UniversityID}] = assoc
	return nil
}

func (r *memAssocRepo) DeleteByUniversityIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, universityIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range universityIDs {
		delete(r.assocs, assocKey{userID, id})
	}
	return nil
}

func (r *memAssocRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserUniversity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.UserUniversity
	for k, a := range r.assocs {
		if k.userID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAssocRepo) CountByStatus(ctx context.Context, tx *gorm.DB, userID uuid.UUID, status string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, a := range r.assocs {
		if k.userID == userID && a.Status == status {
			n++
		}
	}
	return n, nil
}

// newTestCounsellorService wires the service against in-memory fakes with a
// no-op sleep and an identity (no-op) shuffle for determinism.
func newTestCounsellorService(ai AIClient, progressRepo *memProgressRepo, profileRepo *memProfileRepo, uniRepo *memUniversityRepo, assocRepo *memAssocRepo) *counsellorService {
	svc := NewCounsellorService(nil, logger.NewNop(), ai, progressRepo, profileRepo, uniRepo, assocRepo, nil).(*counsellorService)
	svc.sleep = func(d time.Duration) {}
	svc.shuffle = func(n int, swap func(i, j int)) {}
	return svc
}

func catalogUniversity(name, country, category string, ranking int) *types.University {
	return &types.University{
		ID:       uuid.New(),
		Name:     name,
		Country:  country,
		City:     "City",
		Ranking:  ranking,
		Category: category,
		TuitionFee: types.TuitionFee{
			Min: 20000, Max: 30000, Currency: "USD",
		},
	}
}
