package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/studypath/studypath-backend/internal/counsellor"
	"github.com/studypath/studypath-backend/internal/types"
)

func usaCatalog() []*types.University {
	return []*types.University{
		catalogUniversity("MIT", "USA", types.CategoryDream, 1),
		catalogUniversity("Stanford", "USA", types.CategoryDream, 2),
		catalogUniversity("UT Austin", "USA", types.CategoryTarget, 40),
		catalogUniversity("Ohio State", "USA", types.CategoryTarget, 90),
		catalogUniversity("Arizona State", "USA", types.CategorySafe, 180),
	}
}

func progressWithCountry(t *testing.T, repo *memProgressRepo, userID uuid.UUID, country string) *types.CounsellorProgress {
	t.Helper()
	p, err := repo.GetOrCreate(context.Background(), nil, userID)
	require.NoError(t, err)
	p.Task0.SelectedCountry = country
	p.Task0.Finalized = true
	p.CurrentTask = counsellor.StageUniversity
	return p
}

func TestEnsureUniversityPlanRequiresFinalizedCountry(t *testing.T) {
	ai := &fakeAI{}
	svc := newTestCounsellorService(ai, newMemProgressRepo(), newMemProfileRepo(), newMemUniversityRepo(usaCatalog()...), newMemAssocRepo())

	progress, err := svc.EnsureUniversityPlan(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Zero(t, ai.calls)
	require.Empty(t, progress.Task1.ProposedList)
}

func TestEnsureUniversityPlanUsesAIPicks(t *testing.T) {
	unis := usaCatalog()
	ai := &fakeAI{steps: []fakeAIStep{{text: fmt.Sprintf(`[
		{"id":%q,"category":"Dream","reason":"Top CS research"},
		{"id":%q,"category":"Dream","reason":"Strong faculty"},
		{"id":%q,"category":"Target","reason":"Good value"},
		{"id":%q,"category":"Target","reason":"Large program"},
		{"id":%q,"category":"Safe","reason":"High acceptance"}
	]`, unis[0].ID, unis[1].ID, unis[2].ID, unis[3].ID, unis[4].ID)}}}
	progressRepo := newMemProgressRepo()
	svc := newTestCounsellorService(ai, progressRepo, newMemProfileRepo(), newMemUniversityRepo(unis...), newMemAssocRepo())
	userID := uuid.New()
	progressWithCountry(t, progressRepo, userID, "USA")

	progress, err := svc.EnsureUniversityPlan(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, progress.Task1.ProposedList, 5)
	require.Equal(t, "MIT", progress.Task1.ProposedList[0].Name)
	require.Equal(t, "Top CS research", progress.Task1.ProposedList[0].Reason)
}

func TestEnsureUniversityPlanDropsUnknownAndDuplicateIDs(t *testing.T) {
	unis := usaCatalog()
	// Two bogus ids and one duplicate leave only 2 valid picks, so the
	// failsafe tops the list back up to 5.
	ai := &fakeAI{steps: []fakeAIStep{{text: fmt.Sprintf(`[
		{"id":%q,"category":"Dream","reason":"Top CS research"},
		{"id":%q,"category":"Dream","reason":"dupe"},
		{"id":%q,"category":"Target","reason":"made up"},
		{"id":%q,"category":"Target","reason":"also made up"},
		{"id":%q,"category":"Safe","reason":"High acceptance"}
	]`, unis[0].ID, unis[0].ID, uuid.New(), uuid.New(), unis[4].ID)}}}
	progressRepo := newMemProgressRepo()
	svc := newTestCounsellorService(ai, progressRepo, newMemProfileRepo(), newMemUniversityRepo(unis...), newMemAssocRepo())
	userID := uuid.New()
	progressWithCountry(t, progressRepo, userID, "USA")

	progress, err := svc.EnsureUniversityPlan(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, progress.Task1.ProposedList, 5)

	seen := map[uuid.UUID]bool{}
	var dreams, targets, safes int
	for _, p := range progress.Task1.ProposedList {
		require.False(t, seen[p.ID], "no duplicates in the proposal")
		seen[p.ID] = true
		switch p.Category {
		case types.CategoryDream:
			dreams++
		case types.CategorySafe:
			safes++
		default:
			targets++
		}
	}
	require.Equal(t, 2, dreams)
	require.Equal(t, 2, targets)
	require.Equal(t, 1, safes)
}

func TestEnsureUniversityPlanTierFallbackOnGarbage(t *testing.T) {
	unis := usaCatalog()
	ai := &fakeAI{steps: []fakeAIStep{{text: "sorry, I cannot help with that"}}}
	progressRepo := newMemProgressRepo()
	svc := newTestCounsellorService(ai, progressRepo, newMemProfileRepo(), newMemUniversityRepo(unis...), newMemAssocRepo())
	userID := uuid.New()
	progressWithCountry(t, progressRepo, userID, "USA")

	progress, err := svc.EnsureUniversityPlan(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, progress.Task1.ProposedList, 5)
	for _, p := range progress.Task1.ProposedList {
		require.Equal(t, "Algorithm Match", p.Reason)
	}
	// Pool order is deterministic, so the tier fill is 2 Dream, 2 Target, 1 Safe.
	require.Equal(t, "MIT", progress.Task1.ProposedList[0].Name)
	require.Equal(t, "Stanford", progress.Task1.ProposedList[1].Name)
	require.Equal(t, "Arizona State", progress.Task1.ProposedList[4].Name)
}

func TestEnsureUniversityPlanBackfillsSparsePools(t *testing.T) {
	// One Dream, three Targets, no Safe: the tier fill cannot satisfy the
	// 2/2/1 shape, so leftovers arrive with the Fallback reason.
	unis := []*types.University{
		catalogUniversity("MIT", "USA", types.CategoryDream, 1),
		catalogUniversity("UT Austin", "USA", types.CategoryTarget, 40),
		catalogUniversity("Ohio State", "USA", types.CategoryTarget, 90),
		catalogUniversity("Purdue", "USA", types.CategoryTarget, 60),
	}
	ai := &fakeAI{steps: []fakeAIStep{{text: "[]"}}}
	progressRepo := newMemProgressRepo()
	svc := newTestCounsellorService(ai, progressRepo, newMemProfileRepo(), newMemUniversityRepo(unis...), newMemAssocRepo())
	userID := uuid.New()
	progressWithCountry(t, progressRepo, userID, "USA")

	progress, err := svc.EnsureUniversityPlan(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, progress.Task1.ProposedList, 4, "cannot exceed the catalog")

	var fallback int
	for _, p := range progress.Task1.ProposedList {
		if p.Reason == "Fallback" {
			fallback++
		}
	}
	require.Equal(t, 1, fallback, "third Target arrives via leftover backfill")
}

func TestEnsureUniversityPlanIsIdempotent(t *testing.T) {
	unis := usaCatalog()
	ai := &fakeAI{steps: []fakeAIStep{{text: "[]"}}}
	progressRepo := newMemProgressRepo()
	svc := newTestCounsellorService(ai, progressRepo, newMemProfileRepo(), newMemUniversityRepo(unis...), newMemAssocRepo())
	userID := uuid.New()
	progressWithCountry(t, progressRepo, userID, "USA")

	_, err := svc.EnsureUniversityPlan(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, 1, ai.calls)

	_, err = svc.EnsureUniversityPlan(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, 1, ai.calls)
}

func TestEnsureUniversityPlanEmptyCatalogLeavesProgressUntouched(t *testing.T) {
	ai := &fakeAI{}
	progressRepo := newMemProgressRepo()
	svc := newTestCounsellorService(ai, progressRepo, newMemProfileRepo(), newMemUniversityRepo(), newMemAssocRepo())
	userID := uuid.New()
	progressWithCountry(t, progressRepo, userID, "Iceland")

	progress, err := svc.EnsureUniversityPlan(context.Background(), userID)
	require.NoError(t, err)
	require.Zero(t, ai.calls)
	require.Empty(t, progress.Task1.ProposedList)
}
