package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studypath/studypath-backend/internal/counsellor"
	"github.com/studypath/studypath-backend/internal/logger"
	"github.com/studypath/studypath-backend/internal/repos"
	"github.com/studypath/studypath-backend/internal/types"
)

// PromptMode selects how tightly the chat prompt fences the model to the
// current stage.
type PromptMode int

const (
	// PromptModeStrict forbids the model from discussing any stage other
	// than the current one.
	PromptModeStrict PromptMode = iota
	// PromptModeOpen keeps the stage context but lets the model answer any
	// study-abroad question.
	PromptModeOpen
)

// ErrOnboardingRequired gates counsellor chat behind a completed onboarding.
var ErrOnboardingRequired = errors.New("complete onboarding first")

// chatModelChain is walked in order until one model returns text.
var chatModelChain = []string{"gemini-2.0-flash", "gemini-2.5-flash", "gemini-3-flash-preview"}

const chatFallbackReply = "I couldn't generate a response. Please try again."

type ChatResult struct {
	Message  string                    `json:"message"`
	Progress *types.CounsellorProgress `json:"progress"`
}

type ChatService interface {
	Chat(ctx context.Context, userID uuid.UUID, message string, mode PromptMode) (*ChatResult, error)
	ProfileAnalysis(ctx context.Context, userID uuid.UUID) (string, error)
}

type chatService struct {
	log          *logger.Logger
	ai           AIClient
	counsellor   CounsellorService
	userRepo     repos.UserRepo
	profileRepo  repos.StudentProfileRepo
	progressRepo repos.CounsellorProgressRepo
	uniRepo      repos.UniversityRepo
}

func NewChatService(
	log *logger.Logger,
	ai AIClient,
	counsellorSvc CounsellorService,
	userRepo repos.UserRepo,
	profileRepo repos.StudentProfileRepo,
	progressRepo repos.CounsellorProgressRepo,
	uniRepo repos.UniversityRepo,
) ChatService {
	return &chatService{
		log:          log.With("service", "ChatService"),
		ai:           ai,
		counsellor:   counsellorSvc,
		userRepo:     userRepo,
		profileRepo:  profileRepo,
		progressRepo: progressRepo,
		uniRepo:      uniRepo,
	}
}

var excessNewlines = regexp.MustCompile(`\n{3,}`)

func (s *chatService) Chat(ctx context.Context, userID uuid.UUID, message string, mode PromptMode) (*ChatResult, error) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if !user.OnboardingCompleted {
		return nil, ErrOnboardingRequired
	}

	progress, err := s.progressRepo.GetOrCreate(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	// Arriving at a generated stage primes its plan so the prompt has
	// something to talk about.
	switch progress.CurrentTask {
	case counsellor.StageCountry:
		progress, err = s.counsellor.EnsureCountryPlan(ctx, userID)
	case counsellor.StageUniversity:
		progress, err = s.counsellor.EnsureUniversityPlan(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	profile, err := s.profileRepo.GetByUserID(ctx, nil, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Past stage 0 only the proposed universities matter; keep the prompt
	// small.
	var universities []*types.University
	if progress.CurrentTask >= counsellor.StageUniversity && len(progress.Task1.ProposedList) > 0 {
		ids := make([]uuid.UUID, 0, len(progress.Task1.ProposedList))
		for _, p := range progress.Task1.ProposedList {
			ids = append(ids, p.ID)
		}
		universities, err = s.uniRepo.GetByIDs(ctx, nil, ids)
		if err != nil {
			return nil, err
		}
	}

	prompt := buildChatPrompt(mode, user, profile, progress, universities, message)
	reply := s.completeChain(ctx, prompt)

	reply = strings.TrimSpace(excessNewlines.ReplaceAllString(reply, "\n\n"))
	if reply == "" {
		reply = "Let's stay on the current task."
	}
	return &ChatResult{Message: reply, Progress: progress}, nil
}

// completeChain tries each model in the fallback chain until one of them
// answers. Chat never fails hard; exhausting the chain yields a canned reply.
func (s *chatService) completeChain(ctx context.Context, prompt string) string {
	mc, modeled := s.ai.(ModelAIClient)
	if !modeled {
		text, err := s.ai.Complete(ctx, prompt, false)
		if err != nil || text == "" {
			if err != nil {
				s.log.Warn("Chat completion failed", "error", err)
			}
			return chatFallbackReply
		}
		return text
	}
	for i, model := range chatModelChain {
		text, err := mc.CompleteWithModel(ctx, model, prompt, false)
		if err == nil && text != "" {
			return text
		}
		if err != nil && i == len(chatModelChain)-1 {
			s.log.Warn("Chat completion failed on all models", "error", err)
		}
	}
	return chatFallbackReply
}

func (s *chatService) ProfileAnalysis(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return "", err
	}
	if !user.OnboardingCompleted {
		return "", ErrOnboardingRequired
	}
	profile, err := s.profileRepo.GetByUserID(ctx, nil, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}
	raw, _ := json.Marshal(profile)
	prompt := fmt.Sprintf("Analyze this student profile. Mention strengths, gaps, and suggested next steps. %s", raw)
	text, err := s.ai.Complete(ctx, prompt, false)
	if err != nil || text == "" {
		if err != nil {
			s.log.Warn("Profile analysis failed", "error", err)
		}
		return "Unable to generate analysis.", nil
	}
	return text, nil
}

func buildChatPrompt(mode PromptMode, user *types.User, profile *types.StudentProfile, progress *types.CounsellorProgress, universities []*types.University, message string) string {
	var b strings.Builder

	countries := "Any"
	if profile != nil && len(profile.PreferredCountries) > 0 {
		countries = strings.Join([]string(profile.PreferredCountries), ", ")
	}
	major := "Undecided"
	budget := "Not specified"
	level, gpa, intake := "N/A", "N/A", "not set"
	exams := "No exam data"
	if profile != nil {
		if profile.FieldOfStudy != "" {
			major = profile.FieldOfStudy
		} else if profile.Major != "" {
			major = profile.Major
		}
		if profile.BudgetRange != "" {
			budget = profile.BudgetRange
		}
		if profile.CurrentEducationLevel != "" {
			level = profile.CurrentEducationLevel
		}
		if profile.GPA != "" {
			gpa = profile.GPA
		}
		if profile.TargetIntakeYear != 0 {
			intake = fmt.Sprintf("%d", profile.TargetIntakeYear)
		}
		exams = fmt.Sprintf("IELTS: %s %g | TOEFL: %s %g | GRE: %s %g | GMAT: %s %g",
			profile.IELTSStatus, profile.IELTSScore,
			profile.TOEFLStatus, profile.TOEFLScore,
			profile.GREStatus, profile.GREScore,
			profile.GMATStatus, profile.GMATScore)
	}

	var uniDB []string
	for _, u := range universities {
		reqs, _ := json.Marshal(u.Requirements)
		uniDB = append(uniDB, fmt.Sprintf("- %s | %s | %s | %s | requirements: %s",
			u.Name, u.Country, strings.Join([]string(u.FieldsOfStudy), ", "),
			strings.Join([]string(u.DegreeLevels), ", "), reqs))
	}

	if mode == PromptModeStrict {
		b.WriteString("You are an AI Counsellor for study-abroad. You work **strictly by tasks**. You must NOT discuss or mention any task other than the current one.\n\n")
	} else {
		b.WriteString("You are an AI Counsellor for study-abroad. The user is working through a guided plan; the current stage is context, not a fence. Answer any study-abroad question helpfully.\n\n")
	}
	fmt.Fprintf(&b, "USER: %s\n", user.FullName)
	fmt.Fprintf(&b, "PROFILE: Education %s | GPA %s | Field %s | Budget %s | Preferred Countries %s | Intake %s | %s\n\n",
		level, gpa, major, budget, countries, intake, exams)
	fmt.Fprintf(&b, "SHORTLIST UNIVERSITY DATABASE (for checking user-suggested universities):\n%s\n", strings.Join(uniDB, "\n"))

	switch progress.CurrentTask {
	case counsellor.StageCountry:
		writeCountryStagePrompt(&b, mode, user, profile, progress, major, budget, gpa)
	case counsellor.StageUniversity:
		writeUniversityStagePrompt(&b, mode, progress)
	case counsellor.StageExams:
		writeExamStagePrompt(&b, mode, profile, progress, major)
	case counsellor.StageDocuments:
		writeDocumentsStagePrompt(&b, mode, profile, progress, major)
	case counsellor.StageEssays:
		writeEssayStagePrompt(&b, mode, progress)
	}

	fmt.Fprintf(&b, "\nUSER MESSAGE: %s", message)
	return b.String()
}

func writeCountryStagePrompt(b *strings.Builder, mode PromptMode, user *types.User, profile *types.StudentProfile, progress *types.CounsellorProgress, major, budget, gpa string) {
	raw, _ := json.Marshal(progress.Task0.ProposedCountries)

	fmt.Fprintf(b, `
Current Status: **Task 0 (Country Selection)**.

**USER PROFILE:**
- Name: %s
- Course: %s (%s)
- Budget: %s
- GPA: %s

**RECOMMENDED COUNTRIES (Already presented to user):**
%s
`, user.FullName, major, profile.DegreeOrDefault(), budget, gpa, raw)

	if mode == PromptModeStrict {
		b.WriteString(`
**SYSTEM INSTRUCTIONS:**
1. **SCOPE:**
   - You are helping the user select a **Country**.
   - **STRICTLY** stay on the topic of countries. Do NOT discuss universities, exams, or visas yet.
2. **YOUR BEHAVIOR:**
   - **Straightforward Recommendations**: The user has been shown 5 top destinations. Focus on helping them choose one of these if they fit.
   - **Be Flexible & Helpful**: If the user asks about ANY other country, **DISCUSS IT FREELY**. Do not be stubborn. Provide a helpful, unbiased overview of that country for their course/budget.
   - **Quick Prompts**: If the user clicks a quick prompt like "Compare costs" or "Job opportunities", give a clear comparison of the top destinations.
3. **GOAL:**
   - Help the user feel confident in a country choice.
   - Once they seem ready, encourage them to click **Select** on a country chip or type it in the search bar.
   - **Call to Action**: End by asking: "Does one of these stand out to you, or are you considering another destination?"
`)
	} else {
		b.WriteString("\nHelp the user compare destinations and settle on a country; they confirm with the Select control in the UI.\n")
	}
}

func writeUniversityStagePrompt(b *strings.Builder, mode PromptMode, progress *types.CounsellorProgress) {
	list := progress.Task1.ProposedList
	listStr := "Generating specific university recommendations..."
	if len(list) > 0 {
		lines := make([]string, 0, len(list))
		for i, u := range list {
			reason := u.Reason
			if reason == "" {
				reason = "Matched"
			}
			lines = append(lines, fmt.Sprintf("%d. %s — %s (%s)", i+1, u.Name, u.Category, reason))
		}
		listStr = strings.Join(lines, "\n")
	}
	country := progress.Task0.SelectedCountry
	if country == "" {
		country = "N/A"
	}

	fmt.Fprintf(b, `
**CURRENT TASK: 1 — Finalize university list (5 colleges: 2 Dream, 2 Target, 1 Safe) from %s**

I have analyzed the available universities in %s against your profile (GPA, Budget, Major) and selected these 5 specifically for you:
%s
`, country, country, listStr)

	if mode == PromptModeStrict {
		b.WriteString(`
**RULES — TASK 1 ONLY. UNIVERSITIES ONLY.**
1. **STRICTLY ON-TOPIC**: Talk ONLY about universities. Ignore exams/visas for now.
2. **FOCUS ON THE 5 SELECTED**: Your primary job is to explain why these 5 specific universities (Dream/Target/Safe) were chosen for the user's profile. Use the DB details provided for these 5.
3. **ALL OTHER UNIVERSITIES = GENERAL KNOWLEDGE**:
   - If the user asks about a university NOT in the 5 recommended ones, do NOT check the database (it won't be there).
   - Answer purely from your own training data. Do NOT say "it's not in the database". Just answer helpfully about ranking, reputation, and fit.
4. **QUICK PROMPTS**: Treat prompts like "Why these universities?" or "Rankings?" as requests to compare the 5 recommended options.
5. **MODIFYING**: If the user wants to add/remove, guide them to use the UI dropdown.
6. **ARRIVING AT TASK**: If start of task, say: "Based on your profile, I've selected these 5 universities for you (2 Dream, 2 Target, 1 Safe). Check them out below!"
7. **CTA**: Always end with: "Click **Finalize Unis** when you are happy with this list."
`)
	} else {
		b.WriteString("\nDiscuss these universities or any others the user raises; list changes happen through the UI dropdown, finalization through **Finalize Unis**.\n")
	}
}

func writeExamStagePrompt(b *strings.Builder, mode PromptMode, profile *types.StudentProfile, progress *types.CounsellorProgress, major string) {
	var uniNames []string
	for _, u := range progress.Task1.ProposedList {
		if u.Name != "" {
			uniNames = append(uniNames, fmt.Sprintf("%d. %s", len(uniNames)+1, u.Name))
		}
	}
	finalized := "Loading your finalized list..."
	if len(uniNames) > 0 {
		finalized = strings.Join(uniNames, "\n")
	}

	consolidated := "- Preparing your consolidated required exams list..."
	if len(progress.Task2.RequiredExams) > 0 {
		lines := make([]string, 0, len(progress.Task2.RequiredExams))
		for _, r := range progress.Task2.RequiredExams {
			if r.MinScore > 0 {
				lines = append(lines, fmt.Sprintf("- %s (typical min %g)", r.Exam, r.MinScore))
			} else {
				lines = append(lines, "- "+r.Exam)
			}
		}
		consolidated = strings.Join(lines, "\n")
	}

	perUni := "- Generating required exams per university based on typical norms..."
	if len(progress.Task2.RequiredExamsPlan) > 0 {
		lines := make([]string, 0, len(progress.Task2.RequiredExamsPlan))
		for _, p := range progress.Task2.RequiredExamsPlan {
			var exams []string
			for _, e := range p.Exams {
				if e.MinScore > 0 {
					exams = append(exams, fmt.Sprintf("%s (min %g)", e.Exam, e.MinScore))
				} else {
					exams = append(exams, e.Exam)
				}
			}
			label := strings.Join(exams, ", ")
			if label == "" {
				label = "No exams listed"
			}
			lines = append(lines, fmt.Sprintf("- %s: %s", p.UniversityName, label))
		}
		perUni = strings.Join(lines, "\n")
	}

	fmt.Fprintf(b, `
**CURRENT TASK: 2 — Required Exams**

Finalized universities (5):
%s

Based on the 5 universities you selected and your intended path (%s in %s), here are the exams you typically need to take (with realistic minimums):
%s

Per-university view (for transparency):
%s

After reviewing this, ask the user to enter their exam scores using the score input area below the chat (dropdown + score box).
`, finalized, profile.DegreeOrDefault(), major, consolidated, perUni)

	if mode == PromptModeStrict {
		b.WriteString(`
**RULES — TASK 2 ONLY. DO NOT discuss documents, SOPs, or Task 4.**
1. **STRICTLY ON TOPIC**: Only answer questions about exams and scores (IELTS/TOEFL/GRE/GMAT/SAT/ACT etc), preparation strategy, syllabus, sections, timelines, typical score expectations, and how to improve scores.
2. **OWN BRAIN, NOT DB**: Treat exam requirements/min scores as guidance based on general admission norms plus the user's education level and intended course. Do NOT reference any database requirements as the source.
3. **BE DETAILED**: When asked about an exam, give structured details: sections, syllabus outline, scoring, duration, recommended prep resources/plan, and what score range is competitive for the user's context.
4. **SCORE COLLECTION**: Always remind the user to submit scores using the UI below. If a score is missing, tell them to enter it. If it's below the minimum, tell them the minimum and ask them to retake/enter an updated score.
5. **GATING**: Do NOT allow moving to the next task until ALL required exams have acceptable scores recorded.
6. **ALWAYS END WITH CTA**: If requirements are incomplete: "Please provide the missing exam scores below to continue." If complete: "All required exams are recorded—moving to documents next."
`)
	} else {
		b.WriteString("\nAnswer exam questions in depth and keep nudging the user to record scores with the input below the chat.\n")
	}
}

func writeDocumentsStagePrompt(b *strings.Builder, mode PromptMode, profile *types.StudentProfile, progress *types.CounsellorProgress, major string) {
	degree := profile.DegreeOrDefault()
	perUni := "Loading your finalized universities to prepare a documents checklist..."
	if len(progress.Task1.ProposedList) > 0 {
		lines := make([]string, 0, len(progress.Task1.ProposedList))
		for i, u := range progress.Task1.ProposedList {
			lines = append(lines, fmt.Sprintf(`%d. %s (%s) — Typical documents for %s in %s:
   - Passport (valid for the entire study period)
   - Academic transcripts and degree certificates (all relevant previous studies)
   - Official English test score report (as required in the Exams step)
   - CV / Resume
   - Statement of Purpose (program-specific)
   - 2-3 Letters of Recommendation
   - Application form (online portal printout, if any)
   - Financial proof (bank statements / funding letters, as per country visa norms)
   - Any university- or program-specific forms listed on the official website`, i+1, u.Name, u.Country, degree, major))
		}
		perUni = strings.Join(lines, "\n\n")
	}

	fmt.Fprintf(b, `
**CURRENT TASK: 3 — Required documents**

For each of your selected universities, you should now focus on arranging the core admission documents.

Here is a typical documents checklist per university (use this as a working list; always cross-check the official website for exact requirements):

%s

Once you have arranged these documents for all universities, you can click **All Docs Ready** in the UI to move ahead.
`, perUni)

	if mode == PromptModeStrict {
		b.WriteString(`
**RULES — TASK 3 ONLY (DOCUMENTS).**
1. **STRICTLY ON TOPIC**: Talk ONLY about documents and paperwork for applications and visas (what is needed, preparation, organization, notarization/translation). Do NOT answer questions about exams, universities, SOP content, or anything outside documentation.
2. **USE GENERAL KNOWLEDGE**: When the user asks about a specific document, explain in detail what it is, who issues it, common formats, typical mistakes, and how to make it strong. If university-specific nuances exist, describe typical patterns and advise checking the official site.
3. **CTA / GATING**: Frequently remind the user that clicking **All Docs Ready** tells the system documents are prepared and moves them to the next step (SOPs, LORs, Resume details).
4. **QUICK PROMPTS**: Treat short prompts like "What documents do I need?" or "How should I organize my documents?" as full questions and reply with clear, structured guidance.
`)
	} else {
		b.WriteString("\nHelp with any paperwork questions; **All Docs Ready** in the UI advances to the essays step.\n")
	}
}

func writeEssayStagePrompt(b *strings.Builder, mode PromptMode, progress *types.CounsellorProgress) {
	by := progress.Task4.ByUniversity
	allDone := progress.Task4.Completed && len(by) > 0
	for _, e := range by {
		if !e.SOP || !e.LORs || !e.Resume {
			allDone = false
		}
	}

	if allDone {
		b.WriteString(`
**FINAL PHASE — All Tasks Complete**

The user has completed:
- Country selection
- University finalization
- Exams planning and score entry
- Documents checklist
- SOP / LORs / Resume planning for each university

Your job now is:
- Congratulate them warmly for completing all guided tasks.
- Clearly say: "Now the only thing left is actually submitting your applications. You can go to **My Universities** to visit each university's page and submit your forms."
- Remind them that the "Next Phase" / "My Universities" button in the UI will take them to their university list.
- From this point onward, you may answer any questions related to studying abroad (applications, timelines, visas, housing, course choices, career impact, etc.), but you should not introduce new structured tasks or stages.
- Keep answers practical, reassuring, and focused on helping them successfully submit and follow through on applications.
`)
		return
	}

	mark := func(done bool) string {
		if done {
			return "✓"
		}
		return "-"
	}
	progStr := "Starting..."
	if len(by) > 0 {
		lines := make([]string, 0, len(by))
		for i, e := range by {
			lines = append(lines, fmt.Sprintf("%d. %s: SOP %s LORs %s Resume %s",
				i+1, e.UniversityName, mark(e.SOP), mark(e.LORs), mark(e.Resume)))
		}
		progStr = strings.Join(lines, " | ")
	}

	idx := progress.Task4.CurrentUniIndex
	if idx >= len(by) && len(by) > 0 {
		idx = len(by) - 1
	}
	currentName := "N/A"
	if idx >= 0 && idx < len(by) {
		currentName = by[idx].UniversityName
	}
	docLabel := "SOP"
	switch progress.Task4.CurrentDocType {
	case types.DocTypeLORs:
		docLabel = "LORs"
	case types.DocTypeResume:
		docLabel = "Resume"
	}

	fmt.Fprintf(b, `
**CURRENT TASK: 4 — SOP, LORs, Resume**
Progress: %s
**Current:** University %d: %s — **%s**
`, progStr, idx+1, currentName, docLabel)

	if mode == PromptModeStrict {
		fmt.Fprintf(b, `
**RULES — TASK 4 ONLY.**
1. Guide the user to complete **%s** for **%s**.
2. Provide guidance in clear points based on the document type:
   - **For SOP**: Focus on Motivation, Academic Background, Relevant Projects, Why this University, and Career Goals.
   - **For LORs**: Advise on choosing recommenders, providing them with highlights, and ensuring they use specific examples of your skills.
   - **For Resume**: Tips on reverse chronological order, emphasizing achievements, projects, internships, and technical skills.
3. Stay focused strictly on SOPs, LORs, and Resume content/structure; do not discuss exams, country choice, or other tasks.
4. After the user confirms they're done for this item, say: "Click **Move to next** to continue."
5. When all universities show SOP, LORs, and Resume as done, congratulate them and let them know the next click will move them into the final phase.
`, docLabel, currentName)
	} else {
		fmt.Fprintf(b, "\nHelp the user draft the %s for %s; **Move to next** in the UI advances the checklist.\n", docLabel, currentName)
	}
}
