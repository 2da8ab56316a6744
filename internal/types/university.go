package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	CategoryDream  = "Dream"
	CategoryTarget = "Target"
	CategorySafe   = "Safe"
)

// AdmissionRequirements holds the minimum thresholds a university publishes.
// Zero means the university does not publish a threshold for that exam.
type AdmissionRequirements struct {
	GPA   float64 `json:"gpa,omitempty"`
	IELTS float64 `json:"ielts,omitempty"`
	TOEFL float64 `json:"toefl,omitempty"`
	GRE   float64 `json:"gre,omitempty"`
	GMAT  float64 `json:"gmat,omitempty"`
}

type TuitionFee struct {
	Min      float64 `json:"min,omitempty"`
	Max      float64 `json:"max,omitempty"`
	Currency string  `json:"currency,omitempty"`
}

type University struct {
	ID             uuid.UUID                   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name           string                      `gorm:"not null;index" json:"name"`
	Country        string                      `gorm:"not null;index" json:"country"`
	City           string                      `gorm:"not null" json:"city"`
	Ranking        int                         `json:"ranking"`
	DegreeLevels   datatypes.JSONSlice[string] `json:"degree_levels"`
	FieldsOfStudy  datatypes.JSONSlice[string] `json:"fields_of_study"`
	TuitionFee     TuitionFee                  `gorm:"serializer:json" json:"tuition_fee"`
	AcceptanceRate float64                     `json:"acceptance_rate"`
	Requirements   AdmissionRequirements       `gorm:"serializer:json" json:"requirements"`
	Description    string                      `json:"description"`
	Website        string                      `json:"website"`
	Category       string                      `gorm:"not null;default:Target;index" json:"category"`
	CreatedAt      time.Time                   `gorm:"not null;default:now()" json:"created_at"`
}

func (University) TableName() string {
	return "university"
}
