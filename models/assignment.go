package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Assignment statuses.
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// User-declared priority levels.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// Assignment is a deadline-tracked piece of work owned by a single user.
type Assignment struct {
	// ID is a unique identifier for the assignment, stored as a UUID in the database.
	ID string `gorm:"type:uuid;primaryKey"`

	// UserID references the owning user. Ownership never transfers.
	UserID string `gorm:"type:uuid;not null;index:idx_assignments_user_due;index:idx_assignments_user_status;index:idx_assignments_user_score"`

	// Title is the assignment's title, required, at most 255 characters.
	Title string `gorm:"size:255;not null"`

	// Subject is the optional course or subject name.
	Subject string `gorm:"size:255"`

	// Description is optional free text.
	Description string `gorm:"type:text"`

	// DueDate is when the assignment is due. Required, and must be in the
	// future at creation time.
	DueDate time.Time `gorm:"not null;index:idx_assignments_user_due"`

	// EstimatedHours is the self-estimated effort in hours (0.1-999.9,
	// one fractional digit). Nil when the user gave no estimate.
	EstimatedHours *float64 `gorm:"type:decimal(4,1)"`

	// PriorityLevel is the user-declared importance: critical, high,
	// medium or low.
	PriorityLevel string `gorm:"size:16;not null;default:'medium'"`

	// PriorityScore is the derived 0-100 ranking value. It is always the
	// output of ComputeScore over the current attributes; never set by
	// the user directly.
	PriorityScore float64 `gorm:"type:decimal(5,2);index:idx_assignments_user_score"`

	// Status is one of not_started, in_progress or completed.
	Status string `gorm:"size:16;not null;default:'not_started';index:idx_assignments_user_status"`

	// CompletionDate is set exactly when Status transitions to completed
	// and cleared when it transitions away. Non-nil iff Status is completed.
	CompletionDate *time.Time

	// CompletionNotes is optional free text recorded on completion.
	CompletionNotes string `gorm:"type:text"`

	// RemindersSent tracks which reminder thresholds have fired. It is
	// owned by the notification collaborator; this service carries it as
	// opaque state and never reads or produces it.
	RemindersSent datatypes.JSON

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate is a GORM hook assigning a UUID primary key so the model
// does not depend on a database-side default.
func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// IsOverdue reports whether the assignment is past due and not completed.
// Computed against the supplied instant, never persisted.
func (a *Assignment) IsOverdue(now time.Time) bool {
	return a.DueDate.Before(now) && a.Status != StatusCompleted
}

// DaysRemaining returns the whole days left until the due date, clamped at
// zero. This is the display value; the scoring engine works from the
// signed distance instead.
func (a *Assignment) DaysRemaining(now time.Time) int {
	days := int(math.Floor(a.DueDate.Sub(now).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

// UrgencyLevel buckets the assignment into a coarse display level based on
// completion status and days remaining.
func (a *Assignment) UrgencyLevel(now time.Time) string {
	if a.IsOverdue(now) {
		return "overdue"
	}
	days := a.DaysRemaining(now)
	switch {
	case days <= 1:
		return "urgent"
	case days <= 3:
		return "high"
	case days <= 7:
		return "medium"
	default:
		return "low"
	}
}
