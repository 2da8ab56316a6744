package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/studypath/studypath-backend/internal/types"
)

const poolPromptCap = 20

type universityPick struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

// EnsureUniversityPlan builds the stage-1 shortlist proposal: 2 Dream,
// 2 Target, 1 Safe out of the selected country's catalog. Idempotent while a
// proposal exists or the list is finalized; a no-country or empty-catalog
// state returns the record unchanged.
func (s *counsellorService) EnsureUniversityPlan(ctx context.Context, userID uuid.UUID) (*types.CounsellorProgress, error) {
	progress, err := s.progressRepo.GetOrCreate(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if !progress.Task0.Finalized || progress.Task0.SelectedCountry == "" {
		return progress, nil
	}
	if progress.Task1.Finalized || len(progress.Task1.ProposedList) > 0 {
		return progress, nil
	}

	allUnis, err := s.uniRepo.GetByCountry(ctx, nil, progress.Task0.SelectedCountry)
	if err != nil {
		return nil, err
	}
	if len(allUnis) == 0 {
		s.log.Warn("No universities in catalog for selected country", "country", progress.Task0.SelectedCountry)
		return progress, nil
	}

	profile, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	var dreamPool, targetPool, safePool []*types.University
	for _, u := range allUnis {
		switch u.Category {
		case types.CategoryDream:
			dreamPool = append(dreamPool, u)
		case types.CategorySafe:
			safePool = append(safePool, u)
		default:
			targetPool = append(targetPool, u)
		}
	}

	byID := make(map[string]*types.University, len(allUnis))
	for _, u := range allUnis {
		byID[u.ID.String()] = u
	}

	prompt := universityPrompt(profile, dreamPool, targetPool, safePool)
	raw, err := completeWithRetry(ctx, s.ai, prompt, true, s.sleep)
	if err != nil {
		s.log.Warn("University recommendation failed", "error", err)
	}

	// Map AI picks back to catalog rows, dropping ids we don't recognise.
	var proposed []types.ProposedUniversity
	picked := map[string]bool{}
	for _, pick := range decodeArray[universityPick](raw) {
		u, ok := byID[pick.ID]
		if !ok || picked[pick.ID] {
			continue
		}
		proposed = append(proposed, types.ToProposed(u, pick.Reason))
		picked[pick.ID] = true
	}

	// Failsafe: fill each tier from its pool, then grab whatever is left.
	if len(proposed) < 5 {
		fill := func(pool []*types.University, want int) {
			added := 0
			for _, u := range pool {
				if added >= want {
					return
				}
				if picked[u.ID.String()] {
					continue
				}
				proposed = append(proposed, types.ToProposed(u, "Algorithm Match"))
				picked[u.ID.String()] = true
				added++
			}
		}

		var dreams, targets, safes int
		for _, p := range proposed {
			switch p.Category {
			case types.CategoryDream:
				dreams++
			case types.CategorySafe:
				safes++
			default:
				targets++
			}
		}
		if dreams < 2 {
			fill(dreamPool, 2-dreams)
		}
		if targets < 2 {
			fill(targetPool, 2-targets)
		}
		if safes < 1 {
			fill(safePool, 1-safes)
		}
		for _, u := range allUnis {
			if len(proposed) >= 5 {
				break
			}
			if picked[u.ID.String()] {
				continue
			}
			proposed = append(proposed, types.ToProposed(u, "Fallback"))
			picked[u.ID.String()] = true
		}
	}

	if len(proposed) > 5 {
		proposed = proposed[:5]
	}
	progress.Task1.ProposedList = proposed
	if err := s.progressRepo.Save(ctx, nil, progress); err != nil {
		return nil, err
	}
	return progress, nil
}

func universityPrompt(profile *types.StudentProfile, dreamPool, targetPool, safePool []*types.University) string {
	major := "General"
	if profile != nil && profile.FieldOfStudy != "" {
		major = profile.FieldOfStudy
	}
	budget, gpa := "N/A", "N/A"
	if profile != nil {
		if profile.BudgetRange != "" {
			budget = profile.BudgetRange
		}
		if profile.GPA != "" {
			gpa = profile.GPA
		}
	}

	return fmt.Sprintf(`You are an expert University Admissions Counsellor.

**USER PROFILE:**
Major: %s
Budget: %s
GPA: %s

**TASK:**
I have provided lists of universities categorized as Dream, Target, and Safe.
You must select the most relevant ones for the user's Major/Profile from these specific lists.

**INSTRUCTIONS:**
1. Select EXACTLY 2 universities from the "DREAM_POOL" list.
2. Select EXACTLY 2 universities from the "TARGET_POOL" list.
3. Select EXACTLY 1 university from the "SAFE_POOL" list.

**DREAM_POOL (Pick 2):**
%s

**TARGET_POOL (Pick 2):**
%s

**SAFE_POOL (Pick 1):**
%s

**OUTPUT:**
Return a strictly valid JSON array of exactly 5 objects.
Format:
[
  { "id": "db_id", "category": "Dream", "reason": "Why this fits..." },
  { "id": "db_id", "category": "Dream", "reason": "Why this fits..." },
  { "id": "db_id", "category": "Target", "reason": "Why this fits..." },
  { "id": "db_id", "category": "Target", "reason": "Why this fits..." },
  { "id": "db_id", "category": "Safe", "reason": "Why this fits..." }
]`,
		major, budget, gpa,
		poolPromptBlock(dreamPool, "Select from Target instead"),
		poolPromptBlock(targetPool, "Select from Safe instead"),
		poolPromptBlock(safePool, "Select from Target instead"))
}

// poolPromptBlock renders up to poolPromptCap entries as id/name/courses
// lines, or a redirect note when the pool is empty.
func poolPromptBlock(pool []*types.University, emptyHint string) string {
	if len(pool) == 0 {
		return fmt.Sprintf("(None available - %s)", emptyHint)
	}
	if len(pool) > poolPromptCap {
		pool = pool[:poolPromptCap]
	}
	lines := make([]string, 0, len(pool))
	for _, u := range pool {
		lines = append(lines, fmt.Sprintf(`{"id": %q, "name": %q, "courses": %s}`,
			u.ID.String(), u.Name, quoteList([]string(u.FieldsOfStudy))))
	}
	return "[" + strings.Join(lines, ",\n ") + "]"
}
