package counsellor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/studypath/studypath-backend/internal/types"
)

// DefaultEnglishExam is the synthesized requirement used whenever the plan
// would otherwise leave a university without an English test.
var DefaultEnglishExam = types.ExamEntry{
	Exam:     "IELTS",
	MinScore: 6.5,
	Required: true,
	Notes:    "Typical English requirement; TOEFL is usually accepted as an alternative.",
}

var usCanadaPattern = regexp.MustCompile(`(?i)united states|usa|u\.s\.a|canada`)

// NormalizeExamPlan applies the deterministic post-parse rules to a raw
// per-university exam plan:
//   - at most one English test (IELTS/TOEFL) stays required per university;
//     a second one is demoted to optional with an appended note
//   - SAT/ACT entries are dropped unless the intended degree is Bachelor's,
//     and even then stay optional
//   - GRE/GMAT stays required only for US/Canada or an MBA; elsewhere it is
//     demoted to optional
//   - every other exam is kept but never marked required
//   - a university with no English test gets the default IELTS entry
//
// countryByName maps university name to its catalog country.
func NormalizeExamPlan(plan []types.UniversityExamPlan, intendedDegree string, countryByName map[string]string) []types.UniversityExamPlan {
	intended := strings.ToLower(intendedDegree)
	isBachelors := strings.Contains(intended, "bachelor")
	isMBA := strings.Contains(intended, "mba")

	out := make([]types.UniversityExamPlan, 0, len(plan))
	for _, entry := range plan {
		country := countryByName[entry.UniversityName]
		exams := make([]types.ExamEntry, 0, len(entry.Exams))
		englishAdded := false

		for _, ex := range entry.Exams {
			name := strings.ToLower(strings.TrimSpace(ex.Exam))
			if name == "" {
				continue
			}
			switch name {
			case "ielts", "toefl":
				if englishAdded {
					ex.Required = false
					ex.Notes = strings.TrimSpace(ex.Notes + " (alternative option, not required if you take the main English test).")
					exams = append(exams, ex)
				} else {
					englishAdded = true
					ex.Required = true
					exams = append(exams, ex)
				}
			case "sat", "act":
				if isBachelors {
					ex.Required = false
					exams = append(exams, ex)
				}
			case "gre", "gmat":
				if usCanadaPattern.MatchString(country) || isMBA {
					ex.Required = true
				} else {
					ex.Required = false
					ex.Notes = strings.TrimSpace(ex.Notes + " (sometimes requested, but not typically required for this country/degree).")
				}
				exams = append(exams, ex)
			default:
				ex.Required = false
				exams = append(exams, ex)
			}
		}

		if !englishAdded {
			exams = append(exams, DefaultEnglishExam)
		}
		out = append(out, types.UniversityExamPlan{UniversityName: entry.UniversityName, Exams: exams})
	}
	return out
}

// AggregateRequiredExams collapses the per-university plan into one
// deduplicated requirement list keyed by lower-cased exam name, keeping the
// maximum minimum score seen across universities. Optional entries are
// ignored for gating.
func AggregateRequiredExams(plan []types.UniversityExamPlan) []types.ExamRequirement {
	var order []string
	byKey := map[string]*types.ExamRequirement{}
	for _, entry := range plan {
		for _, ex := range entry.Exams {
			if !ex.Required {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(ex.Exam))
			if key == "" {
				continue
			}
			if existing, ok := byKey[key]; ok {
				if ex.MinScore > existing.MinScore {
					existing.MinScore = ex.MinScore
				}
				continue
			}
			byKey[key] = &types.ExamRequirement{Exam: ex.Exam, MinScore: ex.MinScore}
			order = append(order, key)
		}
	}
	out := make([]types.ExamRequirement, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	return out
}

// ScoreResult reports the outcome of recording one exam score.
type ScoreResult struct {
	// Missing lists required exams still without an acceptable score, with
	// "(min X)" appended for scores below the aggregated minimum.
	Missing []string
	// BelowMin is set when the submitted score is under the requirement's
	// minimum. The score is stored regardless.
	BelowMin *types.ExamRequirement
	// CompletedNow is true when this submission satisfied the last
	// outstanding requirement and the record advanced to documents.
	CompletedNow bool
}

// RecordExamScore stores a score for a required exam at the exams stage,
// overwriting any prior value, and recomputes the completion invariant.
// When every required exam has a score at or above its minimum the stage is
// marked complete and the record auto-advances to documents.
func RecordExamScore(p *types.CounsellorProgress, examType string, score float64) (*ScoreResult, error) {
	if err := requireStage(p, StageExams, "exam planning"); err != nil {
		return nil, err
	}
	key := strings.ToLower(strings.TrimSpace(examType))
	if key == "" {
		return nil, fmt.Errorf("%w: exam type is required", ErrInvalidInput)
	}
	if len(p.Task2.RequiredExams) == 0 {
		return nil, fmt.Errorf("%w: required exams not prepared yet, please try again", ErrPreconditionFailed)
	}

	var req *types.ExamRequirement
	for i := range p.Task2.RequiredExams {
		if strings.ToLower(p.Task2.RequiredExams[i].Exam) == key {
			req = &p.Task2.RequiredExams[i]
			break
		}
	}
	if req == nil {
		return nil, fmt.Errorf("%w: %s is not in the required exams list for your selected universities", ErrNotRequired, examType)
	}

	if p.Task2.CompletedScores == nil {
		p.Task2.CompletedScores = map[string]float64{}
	}
	p.Task2.CompletedScores[key] = score

	res := &ScoreResult{}
	if req.MinScore > 0 && score < req.MinScore {
		reqCopy := *req
		res.BelowMin = &reqCopy
	}

	for _, r := range p.Task2.RequiredExams {
		k := strings.ToLower(r.Exam)
		val, ok := p.Task2.CompletedScores[k]
		if !ok {
			res.Missing = append(res.Missing, r.Exam)
			continue
		}
		if r.MinScore > 0 && val < r.MinScore {
			res.Missing = append(res.Missing, fmt.Sprintf("%s (min %g)", r.Exam, r.MinScore))
		}
	}

	if len(res.Missing) == 0 {
		p.Task2.Completed = true
		p.CurrentTask = StageDocuments
		res.CompletedNow = true
	}
	return res, nil
}

// ResetExams clears the exam stage from the documents stage and steps back
// so the plan can be regenerated.
func ResetExams(p *types.CounsellorProgress) error {
	if p.CurrentTask != StageDocuments {
		return fmt.Errorf("%w: you can only go back to exams from the documents step", ErrInvalidStage)
	}
	p.Task2 = types.ExamTask{}
	p.CurrentTask = StageExams
	return nil
}
