package counsellor

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/studypath/studypath-backend/internal/types"
)

func essayStageProgress(unis int) *types.CounsellorProgress {
	p := NewProgress(uuid.New())
	p.CurrentTask = StageEssays
	entries := make([]types.EssayProgress, 0, unis)
	for i := 0; i < unis; i++ {
		entries = append(entries, types.EssayProgress{
			UniversityID:   uuid.New(),
			UniversityName: fmt.Sprintf("Uni %d", i),
		})
	}
	InitEssays(p, entries)
	return p
}

func TestAllDocsAvailableAdvancesToEssays(t *testing.T) {
	p := NewProgress(uuid.New())
	p.CurrentTask = StageDocuments
	require.NoError(t, AllDocsAvailable(p))
	require.True(t, p.Task3.Completed)
	require.Equal(t, StageEssays, p.CurrentTask)

	require.ErrorIs(t, AllDocsAvailable(p), ErrInvalidStage)
}

func TestInitEssaysIsIdempotent(t *testing.T) {
	p := essayStageProgress(2)
	original := p.Task4.ByUniversity[0].UniversityID
	InitEssays(p, []types.EssayProgress{{UniversityName: "Other"}})
	require.Equal(t, original, p.Task4.ByUniversity[0].UniversityID)
	require.Len(t, p.Task4.ByUniversity, 2)
}

func TestMoveToNextDocCyclesSopLorsResume(t *testing.T) {
	p := essayStageProgress(2)

	done, err := MoveToNextDoc(p)
	require.NoError(t, err)
	require.False(t, done)
	require.True(t, p.Task4.ByUniversity[0].SOP)
	require.Equal(t, types.DocTypeLORs, p.Task4.CurrentDocType)

	done, err = MoveToNextDoc(p)
	require.NoError(t, err)
	require.False(t, done)
	require.True(t, p.Task4.ByUniversity[0].LORs)
	require.Equal(t, types.DocTypeResume, p.Task4.CurrentDocType)

	done, err = MoveToNextDoc(p)
	require.NoError(t, err)
	require.False(t, done)
	require.True(t, p.Task4.ByUniversity[0].Resume)
	require.Equal(t, 1, p.Task4.CurrentUniIndex)
	require.Equal(t, types.DocTypeSOP, p.Task4.CurrentDocType)
}

func TestFiveUniversitiesCompleteAfterFifteenCalls(t *testing.T) {
	p := essayStageProgress(5)

	for i := 0; i < 14; i++ {
		done, err := MoveToNextDoc(p)
		require.NoError(t, err)
		require.False(t, done, "call %d must not finish the stage", i+1)
	}
	done, err := MoveToNextDoc(p)
	require.NoError(t, err)
	require.True(t, done)
	require.True(t, p.Task4.Completed)
	for _, e := range p.Task4.ByUniversity {
		require.True(t, e.SOP)
		require.True(t, e.LORs)
		require.True(t, e.Resume)
	}

	// Extra calls past the end report the terminal state without mutating.
	done, err = MoveToNextDoc(p)
	require.NoError(t, err)
	require.True(t, done)
}

func TestResetDocsReturnsToDocumentsStage(t *testing.T) {
	p := essayStageProgress(2)
	p.Task3.Completed = true

	require.NoError(t, ResetDocs(p))
	require.Equal(t, StageDocuments, p.CurrentTask)
	require.False(t, p.Task3.Completed)
	require.Empty(t, p.Task4.ByUniversity)
	require.Equal(t, types.DocTypeSOP, p.Task4.CurrentDocType)

	require.ErrorIs(t, ResetDocs(p), ErrInvalidStage)
}
