package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	DocTypeSOP    = "sop"
	DocTypeLORs   = "lors"
	DocTypeResume = "resume"
)

// CountryProposal is one entry of the stage-0 recommendation list.
type CountryProposal struct {
	Country           string `json:"country"`
	Reason            string `json:"reason"`
	AvgTuition        string `json:"avgTuition"`
	UniversitiesCount int    `json:"universitiesCount"`
}

type CountryTask struct {
	ProposedCountries []CountryProposal `json:"proposedCountries"`
	SelectedCountry   string            `json:"selectedCountry,omitempty"`
	Finalized         bool              `json:"finalized"`
}

// ProposedUniversity is a catalog row snapshot tagged with the tier and the
// reason it was proposed for this user.
type ProposedUniversity struct {
	ID             uuid.UUID             `json:"id"`
	Name           string                `json:"name"`
	Country        string                `json:"country"`
	City           string                `json:"city"`
	Category       string                `json:"category"`
	Ranking        int                   `json:"ranking"`
	FieldsOfStudy  []string              `json:"fieldsOfStudy"`
	DegreeLevels   []string              `json:"degreeLevels"`
	Requirements   AdmissionRequirements `json:"requirements"`
	TuitionFee     TuitionFee            `json:"tuitionFee"`
	AcceptanceRate float64               `json:"acceptanceRate"`
	Reason         string                `json:"reason"`
}

type UniversityTask struct {
	ProposedList  []ProposedUniversity `json:"proposedList"`
	UniversityIDs []uuid.UUID          `json:"universityIds"`
	IntakeYear    int                  `json:"intakeYear,omitempty"`
	Finalized     bool                 `json:"finalized"`
}

// ExamEntry is one exam requirement the plan lists for a single university.
// MinScore zero means no stated minimum.
type ExamEntry struct {
	Exam     string  `json:"exam"`
	MinScore float64 `json:"minScore,omitempty"`
	Required bool    `json:"required"`
	Notes    string  `json:"notes,omitempty"`
}

type UniversityExamPlan struct {
	UniversityName string      `json:"universityName"`
	Exams          []ExamEntry `json:"exams"`
}

// ExamRequirement is the per-exam aggregate across all finalized
// universities, keyed case-insensitively by exam name.
type ExamRequirement struct {
	Exam     string  `json:"exam"`
	MinScore float64 `json:"minScore,omitempty"`
}

type ExamTask struct {
	RequiredExamsPlan []UniversityExamPlan `json:"requiredExamsPlan"`
	RequiredExams     []ExamRequirement    `json:"requiredExams"`
	CompletedScores   map[string]float64   `json:"completedScores"`
	Completed         bool                 `json:"completed"`
}

type DocumentsTask struct {
	Completed bool `json:"completed"`
}

type EssayProgress struct {
	UniversityID   uuid.UUID `json:"universityId"`
	UniversityName string    `json:"universityName"`
	SOP            bool      `json:"sop"`
	LORs           bool      `json:"lors"`
	Resume         bool      `json:"resume"`
}

type EssayTask struct {
	ByUniversity    []EssayProgress `json:"byUniversity"`
	CurrentUniIndex int             `json:"currentUniIndex"`
	CurrentDocType  string          `json:"currentDocType"`
	Completed       bool            `json:"completed"`
}

// CounsellorProgress is the per-user progress record for the five-stage
// guided workflow. Stage payloads are stored as JSON columns; the record is
// mutated only through the transition functions in internal/counsellor.
type CounsellorProgress struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	CurrentTask int            `gorm:"not null;default:0" json:"currentTask"`
	Task0       CountryTask    `gorm:"serializer:json" json:"task0"`
	Task1       UniversityTask `gorm:"serializer:json" json:"task1"`
	Task2       ExamTask       `gorm:"serializer:json" json:"task2"`
	Task3       DocumentsTask  `gorm:"serializer:json" json:"task3"`
	Task4       EssayTask      `gorm:"serializer:json" json:"task4"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (CounsellorProgress) TableName() string {
	return "counsellor_progress"
}

// ToProposed snapshots a catalog row into a stage-1 list entry.
func ToProposed(u *University, reason string) ProposedUniversity {
	return ProposedUniversity{
		ID:             u.ID,
		Name:           u.Name,
		Country:        u.Country,
		City:           u.City,
		Category:       u.Category,
		Ranking:        u.Ranking,
		FieldsOfStudy:  []string(u.FieldsOfStudy),
		DegreeLevels:   []string(u.DegreeLevels),
		Requirements:   u.Requirements,
		TuitionFee:     u.TuitionFee,
		AcceptanceRate: u.AcceptanceRate,
		Reason:         reason,
	}
}
