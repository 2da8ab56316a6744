package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/studypath/studypath-backend/internal/types"
)

const documentsChecklist = "- Passport (valid)\n" +
	"- Academic Transcripts & Certificates\n" +
	"- English Test Score Report\n" +
	"- CV / Resume\n" +
	"- Statement of Purpose (SOP)\n" +
	"- 2-3 Letters of Recommendation (LORs)\n" +
	"- Financial Proof (Bank Statements)"

func documentsChecklistMessage(prefix string) string {
	return prefix + "Based on your university list, here are the essential documents you'll need to prepare:\n\n" +
		documentsChecklist +
		"\n\nPlease start collecting these. Once you have everything ready, click **All Docs Ready** below to move to the final step (SOP, LORs, and Resume guidance)."
}

// examSummaryMessage renders the per-university requirements and the
// consolidated list the user must submit scores for.
func examSummaryMessage(progress *types.CounsellorProgress, prefix string) string {
	var perUni []string
	for i, entry := range progress.Task2.RequiredExamsPlan {
		var names []string
		for _, ex := range entry.Exams {
			if ex.Required {
				names = append(names, ex.Exam)
			}
		}
		label := strings.Join(names, ", ")
		if label == "" {
			label = "None"
		}
		perUni = append(perUni, fmt.Sprintf("%d. **%s**: %s", i+1, entry.UniversityName, label))
	}

	var consolidated []string
	for _, r := range progress.Task2.RequiredExams {
		consolidated = append(consolidated, r.Exam)
	}
	consolidatedStr := strings.Join(consolidated, ", ")
	if consolidatedStr == "" {
		consolidatedStr = "required exams"
	}

	return fmt.Sprintf("%sBased on the universities you've shortlisted, here are the requirements:\n\n%s\n\n"+
		"Overall, you need to provide scores for: **%s**. Please enter your actual or target scores below to build your roadmap.",
		prefix, strings.Join(perUni, "\n"), consolidatedStr)
}

// meanTuitionText averages the tuition ceilings (max, falling back to min)
// of a country's universities into a display string.
func meanTuitionText(unis []*types.University) string {
	var sum float64
	var n int
	for _, u := range unis {
		t := u.TuitionFee.Max
		if t == 0 {
			t = u.TuitionFee.Min
		}
		if t > 0 {
			sum += t
			n++
		}
	}
	if n == 0 {
		return "Varies"
	}
	return "$" + groupThousands(int64(math.Round(sum/float64(n))))
}

func groupThousands(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
