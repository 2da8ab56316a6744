package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/studypath/studypath-backend/internal/counsellor"
	"github.com/studypath/studypath-backend/internal/types"
)

// rawExamPlan tolerates loosely typed model output: minScore may come back
// as a string, and a missing "required" flag defaults to true.
type rawExamPlan struct {
	UniversityName string `json:"universityName"`
	Exams          []struct {
		Exam     string `json:"exam"`
		MinScore any    `json:"minScore"`
		Required *bool  `json:"required"`
		Notes    string `json:"notes"`
	} `json:"exams"`
}

// EnsureExamPlan derives the stage-2 exam requirements for the finalized
// shortlist. Idempotent while a plan exists; a record without finalized
// university ids is returned unchanged.
func (s *counsellorService) EnsureExamPlan(ctx context.Context, userID uuid.UUID) (*types.CounsellorProgress, error) {
	progress, err := s.progressRepo.GetOrCreate(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if len(progress.Task1.UniversityIDs) == 0 {
		return progress, nil
	}
	if len(progress.Task2.RequiredExamsPlan) > 0 {
		return progress, nil
	}

	universities, err := s.uniRepo.GetByIDs(ctx, nil, progress.Task1.UniversityIDs)
	if err != nil {
		return nil, err
	}
	if len(universities) == 0 {
		return progress, nil
	}

	profile, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	raw, err := completeWithRetry(ctx, s.ai, examPrompt(profile, universities), true, s.sleep)
	if err != nil {
		s.log.Warn("Exam plan generation failed", "error", err)
	}

	plan := make([]types.UniversityExamPlan, 0, len(universities))
	for _, entry := range decodeArray[rawExamPlan](raw) {
		exams := make([]types.ExamEntry, 0, len(entry.Exams))
		for _, ex := range entry.Exams {
			required := true
			if ex.Required != nil {
				required = *ex.Required
			}
			exams = append(exams, types.ExamEntry{
				Exam:     ex.Exam,
				MinScore: asFloat(ex.MinScore),
				Required: required,
				Notes:    ex.Notes,
			})
		}
		plan = append(plan, types.UniversityExamPlan{UniversityName: entry.UniversityName, Exams: exams})
	}

	// Deterministic fallback: one standard English requirement per university.
	if len(plan) == 0 {
		for _, u := range universities {
			plan = append(plan, types.UniversityExamPlan{
				UniversityName: u.Name,
				Exams: []types.ExamEntry{{
					Exam:     "IELTS",
					MinScore: 6.5,
					Required: true,
					Notes:    "Typical English requirement (TOEFL usually accepted as alternative).",
				}},
			})
		}
	}

	countryByName := make(map[string]string, len(universities))
	for _, u := range universities {
		countryByName[u.Name] = u.Country
	}

	progress.Task2.RequiredExamsPlan = counsellor.NormalizeExamPlan(plan, profile.DegreeOrDefault(), countryByName)
	progress.Task2.RequiredExams = counsellor.AggregateRequiredExams(progress.Task2.RequiredExamsPlan)
	if err := s.progressRepo.Save(ctx, nil, progress); err != nil {
		return nil, err
	}
	return progress, nil
}

func examPrompt(profile *types.StudentProfile, universities []*types.University) string {
	major := "Undecided"
	if profile != nil {
		if profile.FieldOfStudy != "" {
			major = profile.FieldOfStudy
		} else if profile.Major != "" {
			major = profile.Major
		}
	}
	level := "N/A"
	if profile != nil && profile.CurrentEducationLevel != "" {
		level = profile.CurrentEducationLevel
	}

	lines := make([]string, 0, len(universities))
	for _, u := range universities {
		degrees := strings.Join([]string(u.DegreeLevels), ", ")
		if degrees == "" {
			degrees = "N/A"
		}
		fields := strings.Join([]string(u.FieldsOfStudy), ", ")
		if fields == "" {
			fields = "General"
		}
		lines = append(lines, fmt.Sprintf("- %s (%s) | degree levels: %s | fields: %s", u.Name, u.Country, degrees, fields))
	}

	return fmt.Sprintf(`You are an expert admissions counsellor.

GOAL: Based on the universities the user is targeting, identify ONLY the exams that are typically REQUIRED for admission for the user's intended degree/field.
Do NOT list every possible exam. Avoid "kitchen sink" answers.

USER PROFILE:
Intended Degree: %s
Major/Field: %s
Current Education Level: %s

TARGET UNIVERSITIES (the user is applying to these; provide exam requirements per item):
%s

RULES:
- Focus on what is TYPICALLY REQUIRED for the user's intended degree + field.
- English tests: list ONLY ONE primary option (IELTS OR TOEFL) unless the country/program typically requires a specific one.
  If both are generally accepted alternatives, pick the more common and mention the other in notes (do NOT include it as an extra required exam).
- GRE/GMAT: include ONLY if it is commonly required for that degree/field/country (often it is NOT required). Do not include it "just in case".
- Undergrad-only exams (SAT/ACT): include ONLY if the intended degree is Bachelor's. Otherwise exclude.
- If an exam is optional / varies by program, do NOT mark it as required. Instead mention it in notes as "may be requested by some programs".
- Give realistic, commonly expected minimum scores (avoid exact university-specific claims). Prefer typical ranges or a conservative typical minimum.
- Output strictly valid JSON array, one entry per university, format:
[
  {
    "universityName": "Name",
    "exams": [
      { "exam": "IELTS", "minScore": 6.5, "required": true, "notes": "English proficiency (typical). TOEFL is usually accepted as an alternative." }
    ]
  }
]`, profile.DegreeOrDefault(), major, level, strings.Join(lines, "\n"))
}
