package services

import (
	"strings"
	"time"

	"gorm.io/gorm"

	model "github.com/assignmate/AssignMate/models"
)

// Query scopes composable against one owner's assignment collection.

// Pending keeps assignments that are not completed.
func Pending(db *gorm.DB) *gorm.DB {
	return db.Where("status <> ?", model.StatusCompleted)
}

// Overdue keeps assignments past due and not completed.
func Overdue(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("due_date < ?", now).Where("status <> ?", model.StatusCompleted)
	}
}

// DueSoon keeps assignments due within the forward window. Already-overdue
// rows never satisfy the lower bound, so DueSoon and Overdue are disjoint.
func DueSoon(now time.Time, days int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("due_date >= ?", now).
			Where("due_date <= ?", now.AddDate(0, 0, days)).
			Where("status <> ?", model.StatusCompleted)
	}
}

// ByPriority is the default listing order: score descending, soonest due
// date first among equal scores.
func ByPriority(db *gorm.DB) *gorm.DB {
	return db.Order("priority_score DESC").Order("due_date ASC")
}

// SearchTitleSubject matches a case-insensitive substring against title or
// subject. LOWER/LIKE keeps the predicate portable across postgres and the
// sqlite test database.
func SearchTitleSubject(term string) func(*gorm.DB) *gorm.DB {
	pattern := "%" + strings.ToLower(term) + "%"
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("LOWER(title) LIKE ? OR LOWER(subject) LIKE ?", pattern, pattern)
	}
}
