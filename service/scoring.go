package services

import (
	"time"

	model "github.com/assignmate/AssignMate/models"
)

// Declared-priority weights. Unrecognized or legacy values fall back to
// the medium weight; that is intentional, not a defect.
var priorityWeights = map[string]float64{
	model.PriorityCritical: 30,
	model.PriorityHigh:     20,
	model.PriorityMedium:   10,
	model.PriorityLow:      5,
}

// ComputeScore derives the 0-100 priority score from due-date proximity
// (0-40), estimated effort (0-30) and declared priority (0-30). It is a
// pure function of its inputs: the caller persists the result. Every
// input has a defined default, so scoring never fails.
func ComputeScore(dueDate time.Time, estimatedHours *float64, priorityLevel string, now time.Time) float64 {
	return dateScore(dueDate, now) + effortScore(estimatedHours) + priorityScore(priorityLevel)
}

// dateScore maps the signed distance to the due date onto 0-40 points.
// Overdue assignments get the maximum regardless of how overdue; beyond a
// week the score decays linearly and bottoms out at zero from 20 days.
// Note the raw signed value drives this, not the clamped display variant.
func dateScore(dueDate, now time.Time) float64 {
	days := dueDate.Sub(now).Hours() / 24

	switch {
	case days <= 0:
		return 40
	case days <= 1:
		return 35
	case days <= 3:
		return 25
	case days <= 7:
		return 15
	default:
		score := 40 - 2*days
		if score < 0 {
			return 0
		}
		return score
	}
}

// effortScore maps the estimated hours onto 0-30 points. A missing
// estimate contributes nothing.
func effortScore(estimatedHours *float64) float64 {
	if estimatedHours == nil {
		return 0
	}
	h := *estimatedHours
	switch {
	case h >= 10:
		return 30
	case h >= 5:
		return 20
	case h >= 2:
		return 15
	case h > 0:
		return 10
	default:
		return 0
	}
}

func priorityScore(level string) float64 {
	if w, ok := priorityWeights[level]; ok {
		return w
	}
	return priorityWeights[model.PriorityMedium]
}
