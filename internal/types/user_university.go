package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	AssociationShortlisted = "shortlisted"
	AssociationLocked      = "locked"
)

// UserUniversity links a user to a university they shortlisted or locked in.
// One row per (user, university) pair.
type UserUniversity struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_university" json:"user_id"`
	UniversityID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_university" json:"university_id"`
	Status       string     `gorm:"not null" json:"status"`
	Category     string     `json:"category"`
	LockedAt     *time.Time `json:"locked_at,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (UserUniversity) TableName() string {
	return "user_university"
}
