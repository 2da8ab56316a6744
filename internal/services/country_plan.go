package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/studypath/studypath-backend/internal/types"
)

// tier1Countries are the destinations the deterministic fallback prefers
// when the model returns nothing usable.
var tier1Countries = []string{
	"United States", "United Kingdom", "Canada", "Australia", "Germany",
	"Ireland", "New Zealand", "Netherlands", "France", "Singapore",
}

var defaultCountries = []string{"USA", "United Kingdom", "Canada", "Australia", "Germany"}

type countryPick struct {
	Country    string `json:"country"`
	Reason     string `json:"reason"`
	AvgTuition string `json:"avgTuition"`
}

// EnsureCountryPlan populates the stage-0 recommendation list. It is
// idempotent: a finalized stage or an already populated list is returned
// untouched. AI failures degrade to the tier-1 fallback and are never
// surfaced to the caller.
func (s *counsellorService) EnsureCountryPlan(ctx context.Context, userID uuid.UUID) (*types.CounsellorProgress, error) {
	progress, err := s.progressRepo.GetOrCreate(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if progress.Task0.Finalized || len(progress.Task0.ProposedCountries) > 0 {
		return progress, nil
	}

	profile, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	available, err := s.availableCountries(ctx)
	if err != nil {
		return nil, err
	}
	if len(available) == 0 {
		s.log.Warn("No countries found in catalog, using defaults")
		available = append([]string(nil), defaultCountries...)
	}

	course := profile.FieldOrMajor()
	picks := s.pickCountries(ctx, profile, course, available)

	// Cross-validate against the catalog: only countries with at least one
	// university survive.
	proposed := make([]types.CountryProposal, 0, 5)
	for _, p := range picks {
		count, err := s.uniRepo.CountByCountry(ctx, nil, p.Country)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			proposed = append(proposed, types.CountryProposal{
				Country:           p.Country,
				Reason:            p.Reason,
				AvgTuition:        p.AvgTuition,
				UniversitiesCount: int(count),
			})
		}
	}

	// Top up from the remaining catalog countries when validation dropped
	// some picks.
	if len(proposed) < 5 {
		used := map[string]bool{}
		for _, p := range proposed {
			used[p.Country] = true
		}
		for _, c := range available {
			if len(proposed) >= 5 {
				break
			}
			if used[c] {
				continue
			}
			count, err := s.uniRepo.CountByCountry(ctx, nil, c)
			if err != nil {
				return nil, err
			}
			proposed = append(proposed, types.CountryProposal{
				Country:           c,
				Reason:            "Alternative option.",
				AvgTuition:        "Varies",
				UniversitiesCount: int(count),
			})
			used[c] = true
		}
	}

	progress.Task0.ProposedCountries = proposed
	if err := s.progressRepo.Save(ctx, nil, progress); err != nil {
		return nil, err
	}
	return progress, nil
}

// availableCountries reads the distinct-country list through the cache.
func (s *counsellorService) availableCountries(ctx context.Context) ([]string, error) {
	if s.countryCache != nil {
		if countries, hit, err := s.countryCache.GetCountries(ctx); err == nil && hit {
			return countries, nil
		}
	}
	countries, err := s.uniRepo.DistinctCountries(ctx, nil)
	if err != nil {
		return nil, err
	}
	if s.countryCache != nil && len(countries) > 0 {
		if err := s.countryCache.SetCountries(ctx, countries); err != nil {
			s.log.Warn("Failed to cache country list", "error", err)
		}
	}
	return countries, nil
}

func (s *counsellorService) pickCountries(ctx context.Context, profile *types.StudentProfile, course string, available []string) []countryPick {
	prompt := countryPrompt(profile, course, available)
	raw, err := completeWithRetry(ctx, s.ai, prompt, true, s.sleep)
	if err != nil {
		s.log.Warn("Country recommendation failed", "error", err)
	}

	picks := decodeArray[countryPick](raw)
	if len(picks) >= 5 {
		return picks[:5]
	}
	s.log.Info("AI returned insufficient country data, using fallback")
	return s.fallbackCountries(course, available)
}

// fallbackCountries prefers tier-1 destinations, shuffling within each group
// so repeated resets do not always surface the same five.
func (s *counsellorService) fallbackCountries(course string, available []string) []countryPick {
	var preferred, others []string
	for _, c := range available {
		if isTier1(c) {
			preferred = append(preferred, c)
		} else {
			others = append(others, c)
		}
	}
	s.shuffle(len(preferred), func(i, j int) { preferred[i], preferred[j] = preferred[j], preferred[i] })
	s.shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })

	combined := append(preferred, others...)
	if len(combined) > 5 {
		combined = combined[:5]
	}
	picks := make([]countryPick, 0, len(combined))
	for _, c := range combined {
		picks = append(picks, countryPick{
			Country:    c,
			Reason:     fmt.Sprintf("Popular destination for %s.", course),
			AvgTuition: "Varies",
		})
	}
	return picks
}

// isTier1 matches loosely in both directions so catalog spellings like
// "USA" still pair with "United States".
func isTier1(country string) bool {
	for _, t := range tier1Countries {
		if strings.Contains(country, t) || strings.Contains(t, country) {
			return true
		}
	}
	return false
}

func countryPrompt(profile *types.StudentProfile, course string, available []string) string {
	budget := profile.BudgetOrDefault()

	var strategy string
	switch {
	case strings.Contains(budget, "$10,000 - $30,000"):
		strategy = "STRATEGY: Select 2 countries that are the absolute best for the course, and 3 countries that are good for the course and fit a moderate budget."
	case strings.Contains(budget, "< $10,000") || strings.Contains(budget, "10,000"):
		strategy = "STRATEGY: Select 1 country that is the absolute best for the course regardless of cost, and 4 countries that are good for the course BUT specifically known for being budget-friendly."
	default:
		strategy = "STRATEGY: Select the top 5 countries purely based on educational quality and reputation. Budget is not a constraint."
	}

	gpa := "N/A"
	if profile != nil && profile.GPA != "" {
		gpa = profile.GPA
	}

	return fmt.Sprintf(`You are an expert Overseas Education Counsellor.

**USER PROFILE:**
- Target Course: %q
- Intended Degree: %q
- Budget: %q
- GPA: %q

**AVAILABLE COUNTRIES IN DATABASE:**
%s

**YOUR TASK:**
Select exactly 5 countries from the "AVAILABLE COUNTRIES IN DATABASE" list above that best fit the user.

**SELECTION STRATEGY:**
%s

**OUTPUT FORMAT:**
Return a strictly valid JSON array of 5 objects.
IMPORTANT: Output ONLY the JSON. Do NOT use markdown code blocks. Do NOT add any text before or after the JSON.
[
  {
    "country": "Name",
    "reason": "Specific reason why this fits their %s and budget/career goals. Be specific.",
    "avgTuition": "Estimated annual tuition in USD (e.g. $15,000) or 'Free' if applicable"
  }
]`, course, profile.DegreeOrDefault(), budget, gpa, quoteList(available), strategy, course)
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
