// Package counsellor implements the five-stage application-planning state
// machine as pure transitions on a CounsellorProgress record. Nothing here
// touches storage or the AI oracle; callers load the record, apply a
// transition, and persist the result themselves.
package counsellor

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/studypath/studypath-backend/internal/types"
)

// Stage indices. CurrentTask is always one of these.
const (
	StageCountry    = 0
	StageUniversity = 1
	StageExams      = 2
	StageDocuments  = 3
	StageEssays     = 4
)

// NewProgress returns a fresh record at the country stage.
func NewProgress(userID uuid.UUID) *types.CounsellorProgress {
	return &types.CounsellorProgress{
		UserID:      userID,
		CurrentTask: StageCountry,
		Task4:       types.EssayTask{CurrentDocType: types.DocTypeSOP},
	}
}

func requireStage(p *types.CounsellorProgress, stage int, label string) error {
	if p.CurrentTask != stage {
		return fmt.Errorf("%w: not on %s (task %d)", ErrInvalidStage, label, stage)
	}
	return nil
}

// SelectCountry records the user's country choice at stage 0. The caller has
// already confirmed the country exists in the catalog; synth is the entry to
// append when the choice is not on the proposed list (nil to skip).
func SelectCountry(p *types.CounsellorProgress, country string, synth *types.CountryProposal) error {
	if err := requireStage(p, StageCountry, "country selection"); err != nil {
		return err
	}
	if strings.TrimSpace(country) == "" {
		return fmt.Errorf("%w: country is required", ErrInvalidInput)
	}
	proposed := false
	for _, c := range p.Task0.ProposedCountries {
		if c.Country == country {
			proposed = true
			break
		}
	}
	if !proposed && synth != nil {
		p.Task0.ProposedCountries = append(p.Task0.ProposedCountries, *synth)
	}
	p.Task0.SelectedCountry = country
	return nil
}

// FinalizeCountry freezes the stage-0 choice. It does not advance the stage.
func FinalizeCountry(p *types.CounsellorProgress) error {
	if err := requireStage(p, StageCountry, "country selection"); err != nil {
		return err
	}
	if p.Task0.SelectedCountry == "" {
		return fmt.Errorf("%w: select a country first", ErrPreconditionFailed)
	}
	p.Task0.Finalized = true
	return nil
}

// Advance moves CurrentTask forward by exactly one stage, provided the
// current stage's completion invariant holds. It returns the stage entered.
func Advance(p *types.CounsellorProgress) (int, error) {
	switch {
	case p.CurrentTask == StageCountry && p.Task0.Finalized:
	case p.CurrentTask == StageUniversity && p.Task1.Finalized:
	case p.CurrentTask == StageExams && p.Task2.Completed:
	case p.CurrentTask == StageDocuments && p.Task3.Completed:
	default:
		return p.CurrentTask, fmt.Errorf("%w: cannot move to next step, complete the current task first", ErrPreconditionFailed)
	}
	p.CurrentTask++
	return p.CurrentTask, nil
}

// ResetCountry clears stage 0 and stage 1 and returns to the country stage.
// The returned ids are the finalized universities whose persisted
// associations the caller must delete.
func ResetCountry(p *types.CounsellorProgress) ([]uuid.UUID, error) {
	if p.CurrentTask == StageCountry {
		return nil, fmt.Errorf("%w: already on country selection", ErrInvalidStage)
	}
	removed := p.Task1.UniversityIDs
	p.Task0 = types.CountryTask{}
	p.Task1 = types.UniversityTask{}
	p.CurrentTask = StageCountry
	return removed, nil
}

// AddUniversity appends a manually chosen entry to the stage-1 list.
func AddUniversity(p *types.CounsellorProgress, entry types.ProposedUniversity) error {
	if err := requireStage(p, StageUniversity, "university selection"); err != nil {
		return err
	}
	if len(p.Task1.ProposedList) >= 5 {
		return fmt.Errorf("%w: your list already has 5 universities, remove one before adding another", ErrCapacityExceeded)
	}
	for _, e := range p.Task1.ProposedList {
		if e.ID == entry.ID {
			return fmt.Errorf("%w: university already in your list", ErrDuplicate)
		}
	}
	p.Task1.ProposedList = append(p.Task1.ProposedList, entry)
	return nil
}

// RemoveUniversity drops an entry from the stage-1 list. Removing an id that
// is not on the list is not an error.
func RemoveUniversity(p *types.CounsellorProgress, id uuid.UUID) error {
	if err := requireStage(p, StageUniversity, "university selection"); err != nil {
		return err
	}
	kept := p.Task1.ProposedList[:0]
	for _, e := range p.Task1.ProposedList {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	p.Task1.ProposedList = kept
	return nil
}

// FinalizeList freezes the stage-1 list, which must hold exactly five
// entries, and advances to the exams stage. The returned entries drive the
// locked-association upsert.
func FinalizeList(p *types.CounsellorProgress) ([]types.ProposedUniversity, error) {
	if err := requireStage(p, StageUniversity, "university selection"); err != nil {
		return nil, err
	}
	if len(p.Task1.ProposedList) == 0 {
		return nil, fmt.Errorf("%w: no list to finalize", ErrInvalidCount)
	}
	if len(p.Task1.ProposedList) != 5 {
		return nil, fmt.Errorf("%w: you must have exactly 5 universities in your list to finalize", ErrInvalidCount)
	}
	ids := make([]uuid.UUID, 0, 5)
	for _, e := range p.Task1.ProposedList {
		ids = append(ids, e.ID)
	}
	p.Task1.UniversityIDs = ids
	p.Task1.Finalized = true
	p.CurrentTask = StageExams
	return p.Task1.ProposedList, nil
}

// UnlockList un-finalizes stage 1 so the list can be edited again. With
// fullReselect the proposed list is emptied as well (the caller regenerates
// it). Invoked from the exams stage it also clears stage 2. Returns the ids
// whose associations must be deleted.
func UnlockList(p *types.CounsellorProgress, fullReselect bool) ([]uuid.UUID, error) {
	if p.CurrentTask != StageUniversity && p.CurrentTask != StageExams {
		return nil, fmt.Errorf("%w: can only modify the list from the university or exams step", ErrInvalidStage)
	}
	removed := p.Task1.UniversityIDs
	if p.CurrentTask == StageExams {
		p.Task2 = types.ExamTask{}
	}
	p.Task1.Finalized = false
	p.Task1.UniversityIDs = nil
	if fullReselect {
		p.Task1.ProposedList = nil
	}
	p.CurrentTask = StageUniversity
	return removed, nil
}

// SetIntakeYear records the target intake year on the stage-1 payload and is
// mirrored onto the profile by the caller.
func SetIntakeYear(p *types.CounsellorProgress, year int) error {
	if year < 2025 || year > 2035 {
		return fmt.Errorf("%w: invalid intake year", ErrInvalidInput)
	}
	p.Task1.IntakeYear = year
	return nil
}
