package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type StudentProfile struct {
	ID                    uuid.UUID                   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID                uuid.UUID                   `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	CurrentEducationLevel string                      `json:"current_education_level"`
	Major                 string                      `json:"major"`
	GraduationYear        int                         `json:"graduation_year"`
	GPA                   string                      `json:"gpa"`
	IntendedDegree        string                      `json:"intended_degree"`
	FieldOfStudy          string                      `json:"field_of_study"`
	TargetIntakeYear      int                         `json:"target_intake_year"`
	PreferredCountries    datatypes.JSONSlice[string] `json:"preferred_countries"`
	BudgetRange           string                      `json:"budget_range"`
	FundingPlan           string                      `json:"funding_plan"`
	IELTSStatus           string                      `gorm:"default:'Not started'" json:"ielts_status"`
	IELTSScore            float64                     `json:"ielts_score"`
	TOEFLStatus           string                      `gorm:"default:'Not started'" json:"toefl_status"`
	TOEFLScore            float64                     `json:"toefl_score"`
	GREStatus             string                      `gorm:"default:'Not started'" json:"gre_status"`
	GREScore              float64                     `json:"gre_score"`
	GMATStatus            string                      `gorm:"default:'Not started'" json:"gmat_status"`
	GMATScore             float64                     `json:"gmat_score"`
	SOPStatus             string                      `gorm:"default:'Not started'" json:"sop_status"`
	CreatedAt             time.Time                   `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt             time.Time                   `gorm:"not null;default:now()" json:"updated_at"`
}

func (StudentProfile) TableName() string {
	return "student_profile"
}

// FieldOrMajor prefers the study-goal field over the current major.
func (p *StudentProfile) FieldOrMajor() string {
	if p == nil {
		return "General Studies"
	}
	if p.FieldOfStudy != "" {
		return p.FieldOfStudy
	}
	if p.Major != "" {
		return p.Major
	}
	return "General Studies"
}

func (p *StudentProfile) DegreeOrDefault() string {
	if p == nil || p.IntendedDegree == "" {
		return "Master's"
	}
	return p.IntendedDegree
}

func (p *StudentProfile) BudgetOrDefault() string {
	if p == nil || p.BudgetRange == "" {
		return "$30,000 - $50,000"
	}
	return p.BudgetRange
}
