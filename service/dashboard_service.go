package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	model "github.com/assignmate/AssignMate/models"
)

// statsCacheTTL bounds how stale the cached dashboard counters may get.
const statsCacheTTL = 60 * time.Second

func statsCacheKey(userID string) string {
	return "assignmate:stats:" + userID
}

// DashboardStats are the per-owner counters shown on the dashboard.
type DashboardStats struct {
	Total   int64 `json:"total"`
	Pending int64 `json:"pending"`
	Overdue int64 `json:"overdue"`
	DueSoon int64 `json:"due_soon"`
}

// GetDashboard returns the owner's top pending assignments by priority
// along with summary statistics.
func (s *AssignmentService) GetDashboard(userID string) ([]map[string]interface{}, *DashboardStats, error) {
	now := time.Now()

	var top []model.Assignment
	if err := s.db.Where("user_id = ?", userID).
		Scopes(Pending, ByPriority).
		Limit(5).
		Find(&top).Error; err != nil {
		log.Printf("[GetDashboard] Error fetching top assignments: %v", err)
		return nil, nil, fmt.Errorf("failed to fetch assignments: %w", err)
	}

	results := make([]map[string]interface{}, 0, len(top))
	for _, a := range top {
		results = append(results, assignmentResponse(a, now))
	}

	stats, err := s.getStats(userID, now)
	if err != nil {
		return nil, nil, err
	}

	return results, stats, nil
}

// getStats computes the dashboard counters, serving them from the redis
// cache when a fresh copy exists. Mutations invalidate the key.
func (s *AssignmentService) getStats(userID string, now time.Time) (*DashboardStats, error) {
	key := statsCacheKey(userID)
	if data, ok := s.statsCache.Get(key); ok {
		var cached DashboardStats
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
		log.Printf("[getStats] Discarding unreadable cached stats for %s", userID)
	}

	var stats DashboardStats
	base := func() *gorm.DB { return s.db.Model(&model.Assignment{}).Where("user_id = ?", userID) }

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count assignments: %w", err)
	}
	if err := base().Scopes(Pending).Count(&stats.Pending).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending assignments: %w", err)
	}
	if err := base().Scopes(Overdue(now)).Count(&stats.Overdue).Error; err != nil {
		return nil, fmt.Errorf("failed to count overdue assignments: %w", err)
	}
	if err := base().Scopes(DueSoon(now, DueSoonWindowDays)).Count(&stats.DueSoon).Error; err != nil {
		return nil, fmt.Errorf("failed to count due-soon assignments: %w", err)
	}

	if data, err := json.Marshal(stats); err == nil {
		s.statsCache.Set(key, data, statsCacheTTL)
	}

	return &stats, nil
}
