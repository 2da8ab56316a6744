package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/studypath/studypath-backend/internal/counsellor"
	"github.com/studypath/studypath-backend/internal/types"
)

func TestApplyActionSelectCountrySynthesizesProposal(t *testing.T) {
	unis := []*types.University{
		catalogUniversity("TUM", "Germany", types.CategoryDream, 37),
		catalogUniversity("RWTH Aachen", "Germany", types.CategoryTarget, 90),
	}
	svc := newTestCounsellorService(&fakeAI{}, newMemProgressRepo(), newMemProfileRepo(), newMemUniversityRepo(unis...), newMemAssocRepo())

	res, err := svc.ApplyAction(context.Background(), uuid.New(), ActionRequest{Action: "select_country", Country: "Germany"})
	require.NoError(t, err)
	require.Equal(t, "Germany", res.Progress.Task0.SelectedCountry)
	require.Contains(t, res.Message, "Germany selected")

	require.Len(t, res.Progress.Task0.ProposedCountries, 1)
	synth := res.Progress.Task0.ProposedCountries[0]
	require.Equal(t, "Germany", synth.Country)
	require.Equal(t, 2, synth.UniversitiesCount)
	require.Equal(t, "$30,000", synth.AvgTuition)
}

func TestApplyActionSelectCountryRejectsUnknown(t *testing.T) {
	svc := newTestCounsellorService(&fakeAI{}, newMemProgressRepo(), newMemProfileRepo(), newMemUniversityRepo(), newMemAssocRepo())

	_, err := svc.ApplyAction(context.Background(), uuid.New(), ActionRequest{Action: "select_country", Country: "Atlantis"})
	require.ErrorIs(t, err, counsellor.ErrNotFound)
}

func TestApplyActionUnknownAction(t *testing.T) {
	svc := newTestCounsellorService(&fakeAI{}, newMemProgressRepo(), newMemProfileRepo(), newMemUniversityRepo(), newMemAssocRepo())

	_, err := svc.ApplyAction(context.Background(), uuid.New(), ActionRequest{Action: "launch_rocket"})
	require.ErrorIs(t, err, counsellor.ErrUnknownAction)
}

func TestApplyActionExamDoneIsDisabled(t *testing.T) {
	svc := newTestCounsellorService(&fakeAI{}, newMemProgressRepo(), newMemProfileRepo(), newMemUniversityRepo(), newMemAssocRepo())

	_, err := svc.ApplyAction(context.Background(), uuid.New(), ActionRequest{Action: "exam_done"})
	require.ErrorIs(t, err, counsellor.ErrInvalidInput)
	require.Contains(t, err.Error(), "exam_score")
}

func TestApplyActionFinalizeListLocksAssociationsAndPlansExams(t *testing.T) {
	unis := usaCatalog()
	progressRepo := newMemProgressRepo()
	assocRepo := newMemAssocRepo()
	// Garbage AI output pushes the exam plan onto the IELTS fallback.
	ai := &fakeAI{steps: []fakeAIStep{{text: "not json"}}}
	svc := newTestCounsellorService(ai, progressRepo, newMemProfileRepo(), newMemUniversityRepo(unis...), assocRepo)
	userID := uuid.New()

	p := progressWithCountry(t, progressRepo, userID, "USA")
	for _, u := range unis {
		p.Task1.ProposedList = append(p.Task1.ProposedList, types.ToProposed(u, "r"))
	}

	res, err := svc.ApplyAction(context.Background(), userID, ActionRequest{Action: "finalize_list"})
	require.NoError(t, err)
	require.True(t, res.Progress.Task1.Finalized)
	require.Equal(t, counsellor.StageExams, res.Progress.CurrentTask)
	require.Contains(t, res.Message, "List finalized!")
	require.Contains(t, res.Message, "IELTS")

	locked, err := assocRepo.CountByStatus(context.Background(), nil, userID, types.AssociationLocked)
	require.NoError(t, err)
	require.EqualValues(t, 5, locked)
	require.Len(t, res.Progress.Task2.RequiredExamsPlan, 5)
}

func TestApplyActionFinalizeListNeedsExactlyFive(t *testing.T) {
	unis := usaCatalog()[:3]
	progressRepo := newMemProgressRepo()
	svc := newTestCounsellorService(&fakeAI{}, progressRepo, newMemProfileRepo(), newMemUniversityRepo(unis...), newMemAssocRepo())
	userID := uuid.New()

	p := progressWithCountry(t, progressRepo, userID, "USA")
	for _, u := range unis {
		p.Task1.ProposedList = append(p.Task1.ProposedList, types.ToProposed(u, "r"))
	}

	_, err := svc.ApplyAction(context.Background(), userID, ActionRequest{Action: "finalize_list"})
	require.ErrorIs(t, err, counsellor.ErrInvalidCount)
}

func examStageProgress(t *testing.T, repo *memProgressRepo, userID uuid.UUID, unis []*types.University) *types.CounsellorProgress {
	t.Helper()
	p := progressWithFinalizedList(t, repo, userID, unis)
	p.Task2.RequiredExamsPlan = []types.UniversityExamPlan{{
		UniversityName: unis[0].Name,
		Exams: []types.ExamEntry{
			{Exam: "IELTS", MinScore: 6.5, Required: true},
			{Exam: "GRE", MinScore: 320, Required: true},
		},
	}}
	p.Task2.RequiredExams = []types.ExamRequirement{
		{Exam: "IELTS", MinScore: 6.5},
		{Exam: "GRE", MinScore: 320},
	}
	return p
}

func TestApplyActionExamScoreReportsMissing(t *testing.T) {
	unis := []*types.University{catalogUniversity("MIT", "USA", types.CategoryDream, 1)}
	progressRepo := newMemProgressRepo()
	svc := newTestCounsellorService(&fakeAI{}, progressRepo, newMemProfileRepo(), newMemUniversityRepo(unis...), newMemAssocRepo())
	userID := uuid.New()
	examStageProgress(t, progressRepo, userID, unis)

	res, err := svc.ApplyAction(context.Background(), userID, ActionRequest{Action: "exam_score", ExamType: "IELTS", Score: 7})
	require.NoError(t, err)
	require.Contains(t, res.Message, "Score recorded for IELTS")
	require.Contains(t, res.Message, "Still need: GRE")
	require.Equal(t, counsellor.StageExams, res.Progress.CurrentTask)
}

func TestApplyActionExamScoreBelowMinimum(t *testing.T) {
	unis := []*types.University{catalogUniversity("MIT", "USA", types.CategoryDream, 1)}
	progressRepo := newMemProgressRepo()
	svc := newTestCounsellorService(&fakeAI{}, progressRepo, newMemProfileRepo(), newMemUniversityRepo(unis...), newMemAssocRepo())
	userID := uuid.New()
	examStageProgress(t, progressRepo, userID, unis)

	res, err := svc.ApplyAction(context.Background(), userID, ActionRequest{Action: "exam_score", ExamType: "IELTS", Score: 6})
	require.NoError(t, err)
	require.Contains(t, res.Message, "typical minimum is 6.5")
	// The score is kept even when below the minimum.
	require.InDelta(t, 6.0, res.Progress.Task2.CompletedScores["ielts"], 0.01)
}

func TestApplyActionExamScoreCompletesStage(t *testing.T) {
	unis := []*types.University{catalogUniversity("MIT", "USA", types.CategoryDream, 1)}
	progressRepo := newMemProgressRepo()
	svc := newTestCounsellorService(&fakeAI{}, progressRepo, newMemProfileRepo(), newMemUniversityRepo(unis...), newMemAssocRepo())
	userID := uuid.New()
	examStageProgress(t, progressRepo, userID, unis)

	_, err := svc.ApplyAction(context.Background(), userID, ActionRequest{Action: "exam_score", ExamType: "IELTS", Score: 7.5})
	require.NoError(t, err)

	res, err := svc.ApplyAction(context.Background(), userID, ActionRequest{Action: "exam_score", ExamType: "GRE", Score: 325})
	require.NoError(t, err)
	require.Equal(t, counsellor.StageDocuments, res.Progress.CurrentTask)
	require.Contains(t, res.Message, "All Docs Ready")
}

func TestApplyActionReselectCountryDeletesAssociations(t *testing.T) {
	unis := usaCatalog()
	progressRepo := newMemProgressRepo()
	assocRepo := newMemAssocRepo()
	// First call finalizes (garbage plan), second regenerates the country list.
	ai := &fakeAI{steps: []fakeAIStep{{text: "not json"}, {text: "not json"}}}
	svc := newTestCounsellorService(ai, progressRepo, newMemProfileRepo(), newMemUniversityRepo(unis...), assocRepo)
	userID := uuid.New()

	p := progressWithCountry(t, progressRepo, userID, "USA")
	for _, u := range unis {
		p.Task1.ProposedList = append(p.Task1.ProposedList, types.ToProposed(u, "r"))
	}
	_, err := svc.ApplyAction(context.Background(), userID, ActionRequest{Action: "finalize_list"})
	require.NoError(t, err)

	res, err := svc.ApplyAction(context.Background(), userID, ActionRequest{Action: "reselect_country"})
	require.NoError(t, err)
	require.Equal(t, counsellor.StageCountry, res.Progress.CurrentTask)
	require.Empty(t, res.Progress.Task0.SelectedCountry)

	locked, err := assocRepo.CountByStatus(context.Background(), nil, userID, types.AssociationLocked)
	require.NoError(t, err)
	require.Zero(t, locked)
	// The country list is regenerated for the fresh stage-0 round.
	require.NotEmpty(t, res.Progress.Task0.ProposedCountries)
}

func TestApplyActionSetIntakeMirrorsOntoProfile(t *testing.T) {
	progressRepo := newMemProgressRepo()
	profileRepo := newMemProfileRepo()
	svc := newTestCounsellorService(&fakeAI{}, progressRepo, profileRepo, newMemUniversityRepo(), newMemAssocRepo())
	userID := uuid.New()
	require.NoError(t, profileRepo.Upsert(context.Background(), nil, &types.StudentProfile{UserID: userID}))

	res, err := svc.ApplyAction(context.Background(), userID, ActionRequest{Action: "set_intake", IntakeYear: 2027})
	require.NoError(t, err)
	require.Equal(t, 2027, res.Progress.Task1.IntakeYear)

	profile, err := profileRepo.GetByUserID(context.Background(), nil, userID)
	require.NoError(t, err)
	require.Equal(t, 2027, profile.TargetIntakeYear)

	_, err = svc.ApplyAction(context.Background(), userID, ActionRequest{Action: "set_intake", IntakeYear: 2050})
	require.ErrorIs(t, err, counsellor.ErrInvalidInput)
}

func TestApplyActionMoveToNextStepGeneratesUniversityPlan(t *testing.T) {
	unis := usaCatalog()
	progressRepo := newMemProgressRepo()
	ai := &fakeAI{steps: []fakeAIStep{{text: "not json"}}}
	svc := newTestCounsellorService(ai, progressRepo, newMemProfileRepo(), newMemUniversityRepo(unis...), newMemAssocRepo())
	userID := uuid.New()

	p, err := progressRepo.GetOrCreate(context.Background(), nil, userID)
	require.NoError(t, err)
	p.Task0.SelectedCountry = "USA"
	p.Task0.Finalized = true

	res, err := svc.ApplyAction(context.Background(), userID, ActionRequest{Action: "move_to_next_step"})
	require.NoError(t, err)
	require.Equal(t, counsellor.StageUniversity, res.Progress.CurrentTask)
	require.Len(t, res.Progress.Task1.ProposedList, 5)
	require.Contains(t, res.Message, "curated a list")
}

func TestApplyActionDocumentFlow(t *testing.T) {
	unis := usaCatalog()
	progressRepo := newMemProgressRepo()
	svc := newTestCounsellorService(&fakeAI{}, progressRepo, newMemProfileRepo(), newMemUniversityRepo(unis...), newMemAssocRepo())
	userID := uuid.New()

	p := progressWithFinalizedList(t, progressRepo, userID, unis)
	p.CurrentTask = counsellor.StageDocuments
	p.Task2.Completed = true

	res, err := svc.ApplyAction(context.Background(), userID, ActionRequest{Action: "all_docs_available"})
	require.NoError(t, err)
	require.Equal(t, counsellor.StageEssays, res.Progress.CurrentTask)
	require.Len(t, res.Progress.Task4.ByUniversity, 5)
	require.Contains(t, res.Message, "final phase")

	res, err = svc.ApplyAction(context.Background(), userID, ActionRequest{Action: "move_to_next_doc"})
	require.NoError(t, err)
	require.Equal(t, "Moved to next document.", res.Message)
	require.True(t, res.Progress.Task4.ByUniversity[0].SOP)
}

func TestAvailableForDropdownExcludesProposed(t *testing.T) {
	unis := usaCatalog()
	svc := newTestCounsellorService(&fakeAI{}, newMemProgressRepo(), newMemProfileRepo(), newMemUniversityRepo(unis...), newMemAssocRepo())

	progress := &types.CounsellorProgress{}
	progress.Task0.SelectedCountry = "USA"
	progress.Task1.ProposedList = []types.ProposedUniversity{types.ToProposed(unis[0], "r"), types.ToProposed(unis[1], "r")}

	out, err := svc.AvailableForDropdown(context.Background(), progress)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for _, u := range out {
		require.NotEqual(t, unis[0].ID, u.ID)
		require.NotEqual(t, unis[1].ID, u.ID)
	}
}

func TestStatsCountsByStatus(t *testing.T) {
	assocRepo := newMemAssocRepo()
	svc := newTestCounsellorService(&fakeAI{}, newMemProgressRepo(), newMemProfileRepo(), newMemUniversityRepo(), assocRepo)
	userID := uuid.New()

	require.NoError(t, assocRepo.Upsert(context.Background(), nil, &types.UserUniversity{UserID: userID, UniversityID: uuid.New(), Status: types.AssociationLocked}))
	require.NoError(t, assocRepo.Upsert(context.Background(), nil, &types.UserUniversity{UserID: userID, UniversityID: uuid.New(), Status: types.AssociationLocked}))
	require.NoError(t, assocRepo.Upsert(context.Background(), nil, &types.UserUniversity{UserID: userID, UniversityID: uuid.New(), Status: types.AssociationShortlisted}))

	stats, err := svc.Stats(context.Background(), userID)
	require.NoError(t, err)
	require.EqualValues(t, 3, stats.ShortlistedCount+stats.LockedCount)
	require.EqualValues(t, 2, stats.LockedCount)
}
