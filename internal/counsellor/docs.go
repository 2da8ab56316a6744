package counsellor

import (
	"fmt"

	"github.com/studypath/studypath-backend/internal/types"
)

// AllDocsAvailable marks the advisory document checklist done and advances
// to the essays stage. The caller materializes the per-university essay
// entries afterwards.
func AllDocsAvailable(p *types.CounsellorProgress) error {
	if err := requireStage(p, StageDocuments, "document preparation"); err != nil {
		return err
	}
	p.Task3.Completed = true
	p.CurrentTask = StageEssays
	return nil
}

// InitEssays materializes the per-university essay checklist if it is still
// empty. Entries come from the finalized stage-1 universities.
func InitEssays(p *types.CounsellorProgress, entries []types.EssayProgress) {
	if len(p.Task4.ByUniversity) > 0 {
		return
	}
	p.Task4.ByUniversity = entries
	p.Task4.CurrentUniIndex = 0
	p.Task4.CurrentDocType = types.DocTypeSOP
}

// MoveToNextDoc marks the current (university, document) cell done and
// advances the cursor through the fixed sop → lors → resume cycle. It
// returns true when every cell is done and the workflow is terminal.
func MoveToNextDoc(p *types.CounsellorProgress) (bool, error) {
	if err := requireStage(p, StageEssays, "essay preparation"); err != nil {
		return false, err
	}
	by := p.Task4.ByUniversity
	idx := p.Task4.CurrentUniIndex
	if idx >= len(by) {
		return p.Task4.Completed, nil
	}

	switch p.Task4.CurrentDocType {
	case types.DocTypeSOP:
		by[idx].SOP = true
		p.Task4.CurrentDocType = types.DocTypeLORs
	case types.DocTypeLORs:
		by[idx].LORs = true
		p.Task4.CurrentDocType = types.DocTypeResume
	default:
		by[idx].Resume = true
		p.Task4.CurrentUniIndex = idx + 1
		p.Task4.CurrentDocType = types.DocTypeSOP
	}

	allDone := len(by) > 0
	for _, b := range by {
		if !b.SOP || !b.LORs || !b.Resume {
			allDone = false
			break
		}
	}
	if allDone {
		p.Task4.Completed = true
	}
	return allDone, nil
}

// ResetDocs clears the essays stage and steps back to documents.
func ResetDocs(p *types.CounsellorProgress) error {
	if p.CurrentTask != StageEssays {
		return fmt.Errorf("%w: you can only go back to documents from the essays step", ErrInvalidStage)
	}
	p.Task4 = types.EssayTask{CurrentDocType: types.DocTypeSOP}
	p.Task3.Completed = false
	p.CurrentTask = StageDocuments
	return nil
}
