package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	redisclient "github.com/studypath/studypath-backend/internal/clients/redis"
	"github.com/studypath/studypath-backend/internal/counsellor"
	"github.com/studypath/studypath-backend/internal/logger"
	"github.com/studypath/studypath-backend/internal/repos"
	"github.com/studypath/studypath-backend/internal/types"
)

// ActionRequest is the payload of POST /api/counsellor/progress/action.
type ActionRequest struct {
	Action       string  `json:"action"`
	Country      string  `json:"country"`
	IntakeYear   int     `json:"intakeYear"`
	ExamType     string  `json:"examType"`
	Score        float64 `json:"score"`
	UniversityID string  `json:"universityId"`
}

// ActionResult carries the full refreshed record so callers can resync
// state without polling, plus a human-readable status message.
type ActionResult struct {
	Progress *types.CounsellorProgress `json:"progress"`
	Message  string                    `json:"message"`
}

type CounsellorStats struct {
	ShortlistedCount int64 `json:"shortlistedCount"`
	LockedCount      int64 `json:"lockedCount"`
}

type CounsellorService interface {
	GetProgress(ctx context.Context, userID uuid.UUID) (*types.CounsellorProgress, error)
	ApplyAction(ctx context.Context, userID uuid.UUID, req ActionRequest) (*ActionResult, error)
	Stats(ctx context.Context, userID uuid.UUID) (*CounsellorStats, error)

	// EnsureCountryPlan, EnsureUniversityPlan and EnsureExamPlan are the
	// idempotent stage generators. They never surface AI failures; only
	// profile or catalog loading errors come back.
	EnsureCountryPlan(ctx context.Context, userID uuid.UUID) (*types.CounsellorProgress, error)
	EnsureUniversityPlan(ctx context.Context, userID uuid.UUID) (*types.CounsellorProgress, error)
	EnsureExamPlan(ctx context.Context, userID uuid.UUID) (*types.CounsellorProgress, error)

	// AvailableForDropdown lists the selected country's catalog minus the
	// currently proposed universities.
	AvailableForDropdown(ctx context.Context, progress *types.CounsellorProgress) ([]*types.University, error)
}

type counsellorService struct {
	db           *gorm.DB
	log          *logger.Logger
	ai           AIClient
	progressRepo repos.CounsellorProgressRepo
	profileRepo  repos.StudentProfileRepo
	uniRepo      repos.UniversityRepo
	assocRepo    repos.UserUniversityRepo
	countryCache redisclient.CountryCache

	// sleep and shuffle are swapped out by tests.
	sleep   func(time.Duration)
	shuffle func(n int, swap func(i, j int))
}

func NewCounsellorService(
	db *gorm.DB,
	log *logger.Logger,
	ai AIClient,
	progressRepo repos.CounsellorProgressRepo,
	profileRepo repos.StudentProfileRepo,
	uniRepo repos.UniversityRepo,
	assocRepo repos.UserUniversityRepo,
	countryCache redisclient.CountryCache,
) CounsellorService {
	return &counsellorService{
		db:           db,
		log:          log.With("service", "CounsellorService"),
		ai:           ai,
		progressRepo: progressRepo,
		profileRepo:  profileRepo,
		uniRepo:      uniRepo,
		assocRepo:    assocRepo,
		countryCache: countryCache,
		sleep:        time.Sleep,
		shuffle:      rand.Shuffle,
	}
}

func (s *counsellorService) GetProgress(ctx context.Context, userID uuid.UUID) (*types.CounsellorProgress, error) {
	return s.progressRepo.GetOrCreate(ctx, nil, userID)
}

// loadProfile tolerates a missing profile; recommendation prompts fall back
// to defaults. Only a real storage failure is returned.
func (s *counsellorService) loadProfile(ctx context.Context, userID uuid.UUID) (*types.StudentProfile, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}

func (s *counsellorService) ApplyAction(ctx context.Context, userID uuid.UUID, req ActionRequest) (*ActionResult, error) {
	progress, err := s.progressRepo.GetOrCreate(ctx, nil, userID)
	if err != nil {
		return nil, err
	}

	switch req.Action {
	case "select_country":
		return s.selectCountry(ctx, progress, req.Country)
	case "finalize_country":
		return s.finalizeCountry(ctx, progress)
	case "move_to_next_step":
		return s.moveToNextStep(ctx, progress)
	case "reselect_country":
		return s.reselectCountry(ctx, progress)
	case "add_university":
		return s.addUniversity(ctx, progress, req.UniversityID)
	case "remove_university":
		return s.removeUniversity(ctx, progress, req.UniversityID)
	case "finalize_list":
		return s.finalizeList(ctx, progress)
	case "modify_list":
		return s.unlockList(ctx, progress, false)
	case "reselect_universities":
		return s.unlockList(ctx, progress, true)
	case "set_intake":
		return s.setIntake(ctx, progress, req.IntakeYear)
	case "exam_done":
		return nil, fmt.Errorf("%w: please submit your scores using \"exam_score\"; mark done is disabled until all required scores are recorded", counsellor.ErrInvalidInput)
	case "exam_score":
		return s.examScore(ctx, progress, req.ExamType, req.Score)
	case "all_docs_available":
		return s.allDocsAvailable(ctx, progress)
	case "reset_exams":
		return s.resetExams(ctx, progress)
	case "move_to_next_doc":
		return s.moveToNextDoc(ctx, progress)
	case "reset_docs":
		return s.resetDocs(ctx, progress)
	default:
		return nil, fmt.Errorf("%w: %q", counsellor.ErrUnknownAction, req.Action)
	}
}

func (s *counsellorService) selectCountry(ctx context.Context, progress *types.CounsellorProgress, country string) (*ActionResult, error) {
	if strings.TrimSpace(country) == "" {
		return nil, fmt.Errorf("%w: country is required", counsellor.ErrInvalidInput)
	}
	exists, err := s.uniRepo.CountryExists(ctx, nil, country)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: country %q not found in our database", counsellor.ErrNotFound, country)
	}

	var synth *types.CountryProposal
	if !countryProposed(progress, country) {
		unis, err := s.uniRepo.GetByCountry(ctx, nil, country)
		if err != nil {
			return nil, err
		}
		synth = &types.CountryProposal{
			Country:           country,
			Reason:            fmt.Sprintf("You selected this country. It has %d universities available.", len(unis)),
			AvgTuition:        meanTuitionText(unis),
			UniversitiesCount: len(unis),
		}
	}

	if err := counsellor.SelectCountry(progress, country, synth); err != nil {
		return nil, err
	}
	if err := s.progressRepo.Save(ctx, nil, progress); err != nil {
		return nil, err
	}
	return &ActionResult{
		Progress: progress,
		Message:  fmt.Sprintf("Country %s selected. Click \"Finalize Country\" to confirm.", country),
	}, nil
}

func countryProposed(progress *types.CounsellorProgress, country string) bool {
	for _, c := range progress.Task0.ProposedCountries {
		if c.Country == country {
			return true
		}
	}
	return false
}

func (s *counsellorService) finalizeCountry(ctx context.Context, progress *types.CounsellorProgress) (*ActionResult, error) {
	if err := counsellor.FinalizeCountry(progress); err != nil {
		return nil, err
	}
	if err := s.progressRepo.Save(ctx, nil, progress); err != nil {
		return nil, err
	}
	return &ActionResult{
		Progress: progress,
		Message:  "Country finalized! Excellent. Now let's find the best universities for you. Click \"Move to Next Step\" to continue.",
	}, nil
}

func (s *counsellorService) moveToNextStep(ctx context.Context, progress *types.CounsellorProgress) (*ActionResult, error) {
	entered, err := counsellor.Advance(progress)
	if err != nil {
		return nil, err
	}
	if err := s.progressRepo.Save(ctx, nil, progress); err != nil {
		return nil, err
	}

	switch entered {
	case counsellor.StageUniversity:
		refreshed, err := s.EnsureUniversityPlan(ctx, progress.UserID)
		if err != nil {
			return nil, err
		}
		return &ActionResult{
			Progress: refreshed,
			Message: "Excellent choice! Based on your academic profile and preferences, I've curated a list of top universities " +
				"in that country for you. You can select up to 5 universities to build your final shortlist.",
		}, nil
	case counsellor.StageExams:
		refreshed, err := s.EnsureExamPlan(ctx, progress.UserID)
		if err != nil {
			return nil, err
		}
		return &ActionResult{Progress: refreshed, Message: examSummaryMessage(refreshed, "")}, nil
	case counsellor.StageDocuments:
		return &ActionResult{Progress: progress, Message: documentsChecklistMessage("")}, nil
	case counsellor.StageEssays:
		if err := s.materializeEssays(ctx, progress); err != nil {
			return nil, err
		}
		return &ActionResult{
			Progress: progress,
			Message:  "Excellent! We've reached the final phase: SOPs, LORs, and Resume guidance. We'll go through each university on your list one by one.",
		}, nil
	}
	return &ActionResult{Progress: progress, Message: "Moved to next step."}, nil
}

func (s *counsellorService) reselectCountry(ctx context.Context, progress *types.CounsellorProgress) (*ActionResult, error) {
	removed, err := counsellor.ResetCountry(progress)
	if err != nil {
		return nil, err
	}
	if err := s.assocRepo.DeleteByUniversityIDs(ctx, nil, progress.UserID, removed); err != nil {
		return nil, err
	}
	if err := s.progressRepo.Save(ctx, nil, progress); err != nil {
		return nil, err
	}
	refreshed, err := s.EnsureCountryPlan(ctx, progress.UserID)
	if err != nil {
		return nil, err
	}
	return &ActionResult{Progress: refreshed, Message: "Resetting country selection."}, nil
}

func (s *counsellorService) addUniversity(ctx context.Context, progress *types.CounsellorProgress, universityID string) (*ActionResult, error) {
	id, err := uuid.Parse(universityID)
	if err != nil {
		return nil, fmt.Errorf("%w: university id required", counsellor.ErrInvalidInput)
	}
	uni, err := s.uniRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: university not found", counsellor.ErrNotFound)
		}
		return nil, err
	}
	if err := counsellor.AddUniversity(progress, types.ToProposed(uni, "Manually added by user.")); err != nil {
		return nil, err
	}
	if err := s.progressRepo.Save(ctx, nil, progress); err != nil {
		return nil, err
	}
	return &ActionResult{Progress: progress, Message: fmt.Sprintf("%s added to your list.", uni.Name)}, nil
}

func (s *counsellorService) removeUniversity(ctx context.Context, progress *types.CounsellorProgress, universityID string) (*ActionResult, error) {
	id, err := uuid.Parse(universityID)
	if err != nil {
		return nil, fmt.Errorf("%w: university id required", counsellor.ErrInvalidInput)
	}
	if err := counsellor.RemoveUniversity(progress, id); err != nil {
		return nil, err
	}
	if err := s.progressRepo.Save(ctx, nil, progress); err != nil {
		return nil, err
	}
	return &ActionResult{Progress: progress, Message: "University removed from list."}, nil
}

func (s *counsellorService) finalizeList(ctx context.Context, progress *types.CounsellorProgress) (*ActionResult, error) {
	entries, err := counsellor.FinalizeList(progress)
	if err != nil {
		return nil, err
	}
	if err := s.progressRepo.Save(ctx, nil, progress); err != nil {
		return nil, err
	}
	for _, e := range entries {
		assoc := &types.UserUniversity{
			UserID:       progress.UserID,
			UniversityID: e.ID,
			Status:       types.AssociationLocked,
			Category:     e.Category,
		}
		if err := s.assocRepo.Upsert(ctx, nil, assoc); err != nil {
			return nil, err
		}
	}
	refreshed, err := s.EnsureExamPlan(ctx, progress.UserID)
	if err != nil {
		return nil, err
	}
	return &ActionResult{Progress: refreshed, Message: examSummaryMessage(refreshed, "List finalized! ")}, nil
}

func (s *counsellorService) unlockList(ctx context.Context, progress *types.CounsellorProgress, fullReselect bool) (*ActionResult, error) {
	removed, err := counsellor.UnlockList(progress, fullReselect)
	if err != nil {
		return nil, err
	}
	if err := s.assocRepo.DeleteByUniversityIDs(ctx, nil, progress.UserID, removed); err != nil {
		return nil, err
	}
	if err := s.progressRepo.Save(ctx, nil, progress); err != nil {
		return nil, err
	}
	if fullReselect {
		refreshed, err := s.EnsureUniversityPlan(ctx, progress.UserID)
		if err != nil {
			return nil, err
		}
		progress = refreshed
	}
	return &ActionResult{Progress: progress, Message: "List unlocked. You can add or remove universities now."}, nil
}

func (s *counsellorService) setIntake(ctx context.Context, progress *types.CounsellorProgress, year int) (*ActionResult, error) {
	if err := counsellor.SetIntakeYear(progress, year); err != nil {
		return nil, err
	}
	if err := s.progressRepo.Save(ctx, nil, progress); err != nil {
		return nil, err
	}
	if profile, err := s.loadProfile(ctx, progress.UserID); err == nil && profile != nil {
		profile.TargetIntakeYear = year
		if err := s.profileRepo.Save(ctx, nil, profile); err != nil {
			s.log.Warn("Failed to mirror intake year onto profile", "error", err)
		}
	}
	return &ActionResult{Progress: progress, Message: fmt.Sprintf("Intake set to %d.", year)}, nil
}

func (s *counsellorService) examScore(ctx context.Context, progress *types.CounsellorProgress, examType string, score float64) (*ActionResult, error) {
	// Make sure a plan exists before judging the submission.
	if progress.CurrentTask == counsellor.StageExams && len(progress.Task2.RequiredExams) == 0 {
		refreshed, err := s.EnsureExamPlan(ctx, progress.UserID)
		if err != nil {
			return nil, err
		}
		progress = refreshed
	}

	res, err := counsellor.RecordExamScore(progress, examType, score)
	if err != nil {
		return nil, err
	}
	if err := s.progressRepo.Save(ctx, nil, progress); err != nil {
		return nil, err
	}

	switch {
	case res.BelowMin != nil:
		return &ActionResult{
			Progress: progress,
			Message: fmt.Sprintf("Score recorded for %s, but the typical minimum is %g. Please provide a higher score or retake the exam.",
				examType, res.BelowMin.MinScore),
		}, nil
	case res.CompletedNow:
		prefix := fmt.Sprintf("Score recorded for %s. All required exams are captured! ", examType)
		return &ActionResult{Progress: progress, Message: documentsChecklistMessage(prefix)}, nil
	default:
		return &ActionResult{
			Progress: progress,
			Message:  fmt.Sprintf("Score recorded for %s. Still need: %s.", examType, strings.Join(res.Missing, ", ")),
		}, nil
	}
}

func (s *counsellorService) allDocsAvailable(ctx context.Context, progress *types.CounsellorProgress) (*ActionResult, error) {
	if err := counsellor.AllDocsAvailable(progress); err != nil {
		return nil, err
	}
	if err := s.materializeEssays(ctx, progress); err != nil {
		return nil, err
	}
	return &ActionResult{
		Progress: progress,
		Message:  "Documents verified! Moving to the final phase: SOPs, LORs, and Resume guidance.",
	}, nil
}

func (s *counsellorService) resetExams(ctx context.Context, progress *types.CounsellorProgress) (*ActionResult, error) {
	if err := counsellor.ResetExams(progress); err != nil {
		return nil, err
	}
	if err := s.progressRepo.Save(ctx, nil, progress); err != nil {
		return nil, err
	}
	refreshed, err := s.EnsureExamPlan(ctx, progress.UserID)
	if err != nil {
		return nil, err
	}
	return &ActionResult{Progress: refreshed, Message: "Exams reset. Please re-enter required exam scores."}, nil
}

func (s *counsellorService) moveToNextDoc(ctx context.Context, progress *types.CounsellorProgress) (*ActionResult, error) {
	allDone, err := counsellor.MoveToNextDoc(progress)
	if err != nil {
		return nil, err
	}
	if err := s.progressRepo.Save(ctx, nil, progress); err != nil {
		return nil, err
	}
	if allDone {
		return &ActionResult{Progress: progress, Message: "Congratulations! All your tasks are completed."}, nil
	}
	return &ActionResult{Progress: progress, Message: "Moved to next document."}, nil
}

func (s *counsellorService) resetDocs(ctx context.Context, progress *types.CounsellorProgress) (*ActionResult, error) {
	if err := counsellor.ResetDocs(progress); err != nil {
		return nil, err
	}
	if err := s.progressRepo.Save(ctx, nil, progress); err != nil {
		return nil, err
	}
	return &ActionResult{Progress: progress, Message: "Essay tracking cleared. Back to the documents step."}, nil
}

// materializeEssays fills the stage-4 checklist from the finalized list and
// persists the record.
func (s *counsellorService) materializeEssays(ctx context.Context, progress *types.CounsellorProgress) error {
	if len(progress.Task4.ByUniversity) == 0 && len(progress.Task1.UniversityIDs) > 0 {
		unis, err := s.uniRepo.GetByIDs(ctx, nil, progress.Task1.UniversityIDs)
		if err != nil {
			return err
		}
		entries := make([]types.EssayProgress, 0, len(unis))
		for _, u := range unis {
			entries = append(entries, types.EssayProgress{UniversityID: u.ID, UniversityName: u.Name})
		}
		counsellor.InitEssays(progress, entries)
	}
	return s.progressRepo.Save(ctx, nil, progress)
}

func (s *counsellorService) Stats(ctx context.Context, userID uuid.UUID) (*CounsellorStats, error) {
	shortlisted, err := s.assocRepo.CountByStatus(ctx, nil, userID, types.AssociationShortlisted)
	if err != nil {
		return nil, err
	}
	locked, err := s.assocRepo.CountByStatus(ctx, nil, userID, types.AssociationLocked)
	if err != nil {
		return nil, err
	}
	return &CounsellorStats{ShortlistedCount: shortlisted, LockedCount: locked}, nil
}

func (s *counsellorService) AvailableForDropdown(ctx context.Context, progress *types.CounsellorProgress) ([]*types.University, error) {
	if progress.Task0.SelectedCountry == "" {
		return nil, nil
	}
	all, err := s.uniRepo.GetByCountry(ctx, nil, progress.Task0.SelectedCountry)
	if err != nil {
		return nil, err
	}
	proposed := map[uuid.UUID]bool{}
	for _, p := range progress.Task1.ProposedList {
		proposed[p.ID] = true
	}
	out := make([]*types.University, 0, len(all))
	for _, u := range all {
		if !proposed[u.ID] {
			out = append(out, u)
		}
	}
	return out, nil
}
