package types

import (
	"time"

	"github.com/google/uuid"
)

// AICallLog records one oracle round trip for auditing and cost tracking.
type AICallLog struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Kind        string    `gorm:"not null" json:"kind"`
	Model       string    `json:"model"`
	PromptChars int       `json:"prompt_chars"`
	OutputChars int       `json:"output_chars"`
	LatencyMs   int64     `json:"latency_ms"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (AICallLog) TableName() string {
	return "ai_call_log"
}
