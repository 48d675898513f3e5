package services

import (
	"fmt"
	"log"
	"math"
	"os"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/elastic/go-elasticsearch/v8"
	"gorm.io/gorm"

	"github.com/assignmate/AssignMate/cache"
	model "github.com/assignmate/AssignMate/models"
)

// PageSize is the fixed listing page size.
const PageSize = 20

// DueSoonWindowDays is the default forward window for the due-soon filter.
const DueSoonWindowDays = 7

// AssignmentService handles assignment CRUD, scoring and queries.
type AssignmentService struct {
	db         *gorm.DB
	esClient   *elasticsearch.Client
	s3Client   *s3.S3
	statsCache *cache.Cache
}

// NewAssignmentService initializes the service. Elasticsearch, S3 and the
// stats cache are all optional: missing configuration disables the
// corresponding feature instead of failing startup.
func NewAssignmentService(db *gorm.DB) (*AssignmentService, error) {
	if db == nil {
		return nil, fmt.Errorf("nil database handle")
	}

	svc := &AssignmentService{db: db}

	if esURL := os.Getenv("ELASTICSEARCH_URL"); esURL != "" {
		esClient, err := elasticsearch.NewClient(elasticsearch.Config{
			Addresses: []string{esURL},
		})
		if err != nil {
			log.Printf("Warning: failed to create Elasticsearch client: %v", err)
		} else {
			svc.esClient = esClient
		}
	}

	region := os.Getenv("S3_REGION")
	endpoint := os.Getenv("S3_ENDPOINT")
	accessKey := os.Getenv("S3_ACCESS_KEY")
	secretKey := os.Getenv("S3_SECRET_KEY")
	if region != "" && accessKey != "" && secretKey != "" {
		sess, err := session.NewSession(&aws.Config{
			Region:           aws.String(region),
			Endpoint:         aws.String(endpoint),
			Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
			S3ForcePathStyle: aws.Bool(true),
		})
		if err != nil {
			log.Printf("Warning: failed to create AWS session: %v", err)
		} else {
			svc.s3Client = s3.New(sess)
		}
	}

	svc.statsCache = cache.New(os.Getenv("REDIS_URL"))

	return svc, nil
}

// CreateAssignmentInput carries the user-settable fields for creation.
type CreateAssignmentInput struct {
	Title          string    `json:"title"`
	Subject        string    `json:"subject"`
	Description    string    `json:"description"`
	DueDate        time.Time `json:"due_date"`
	EstimatedHours *float64  `json:"estimated_hours"`
	PriorityLevel  string    `json:"priority_level"`
}

// UpdateAssignmentInput carries the user-settable fields for a full update.
type UpdateAssignmentInput struct {
	CreateAssignmentInput
	Status          string `json:"status"`
	CompletionNotes string `json:"completion_notes"`
}

// ListFilters are the optional listing parameters.
type ListFilters struct {
	Status  string
	Urgency string
	Search  string
	Page    int
}

func validStatus(s string) bool {
	return s == model.StatusNotStarted || s == model.StatusInProgress || s == model.StatusCompleted
}

func validPriorityLevel(p string) bool {
	_, ok := priorityWeights[p]
	return ok
}

// validateCreate checks the creation fields against the supplied instant
// and returns per-field messages. Nothing is persisted or scored when this
// fails.
func validateCreate(in CreateAssignmentInput, now time.Time) map[string]string {
	fields := make(map[string]string)

	if in.Title == "" {
		fields["title"] = "title is required"
	} else if utf8.RuneCountInString(in.Title) > 255 {
		fields["title"] = "title must be at most 255 characters"
	}
	if utf8.RuneCountInString(in.Subject) > 255 {
		fields["subject"] = "subject must be at most 255 characters"
	}
	if in.DueDate.IsZero() {
		fields["due_date"] = "due date is required"
	} else if !in.DueDate.After(now) {
		fields["due_date"] = "due date must be in the future"
	}
	if in.EstimatedHours != nil {
		h := *in.EstimatedHours
		if h < 0.1 || h > 999.9 {
			fields["estimated_hours"] = "estimated hours must be between 0.1 and 999.9"
		}
	}
	if in.PriorityLevel == "" {
		fields["priority_level"] = "priority level is required"
	} else if !validPriorityLevel(in.PriorityLevel) {
		fields["priority_level"] = "priority level must be one of critical, high, medium, low"
	}

	return fields
}

// roundHours normalizes an estimate to one fractional digit, matching the
// decimal(4,1) column.
func roundHours(h *float64) *float64 {
	if h == nil {
		return nil
	}
	rounded := math.Round(*h*10) / 10
	return &rounded
}

// CreateAssignment validates and persists a new assignment for the owner,
// scores it, and indexes it for search.
func (s *AssignmentService) CreateAssignment(userID string, in CreateAssignmentInput) (*model.Assignment, error) {
	now := time.Now()

	if fields := validateCreate(in, now); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	assignment := model.Assignment{
		UserID:         userID,
		Title:          in.Title,
		Subject:        in.Subject,
		Description:    in.Description,
		DueDate:        in.DueDate,
		EstimatedHours: roundHours(in.EstimatedHours),
		PriorityLevel:  in.PriorityLevel,
		Status:         model.StatusNotStarted,
	}
	assignment.PriorityScore = ComputeScore(assignment.DueDate, assignment.EstimatedHours, assignment.PriorityLevel, now)

	if err := s.db.Create(&assignment).Error; err != nil {
		log.Printf("[CreateAssignment] Error saving assignment: %v", err)
		return nil, fmt.Errorf("failed to save assignment: %w", err)
	}
	log.Printf("[CreateAssignment] Assignment %s created for user %s (score %.2f)", assignment.ID, userID, assignment.PriorityScore)

	s.indexAssignment(assignment)
	s.invalidateStats(userID)

	return &assignment, nil
}

// GetAssignment fetches one assignment, distinguishing unknown ids from
// foreign ownership.
func (s *AssignmentService) GetAssignment(userID, id string) (*model.Assignment, error) {
	var assignment model.Assignment
	if err := s.db.First(&assignment, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		log.Printf("[GetAssignment] Error fetching assignment %s: %v", id, err)
		return nil, err
	}
	if assignment.UserID != userID {
		return nil, ErrForbidden
	}
	return &assignment, nil
}

// UpdateAssignment applies a full update: validation, status transition
// side effects, persistence and rescoring.
func (s *AssignmentService) UpdateAssignment(userID, id string, in UpdateAssignmentInput) (*model.Assignment, error) {
	assignment, err := s.GetAssignment(userID, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	fields := validateCreate(in.CreateAssignmentInput, now)
	if in.Status == "" {
		fields["status"] = "status is required"
	} else if !validStatus(in.Status) {
		fields["status"] = "status must be one of not_started, in_progress, completed"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	applyStatusTransition(assignment, in.Status, now)
	assignment.Title = in.Title
	assignment.Subject = in.Subject
	assignment.Description = in.Description
	assignment.DueDate = in.DueDate
	assignment.EstimatedHours = roundHours(in.EstimatedHours)
	assignment.PriorityLevel = in.PriorityLevel
	assignment.CompletionNotes = in.CompletionNotes
	assignment.PriorityScore = ComputeScore(assignment.DueDate, assignment.EstimatedHours, assignment.PriorityLevel, now)

	if err := s.db.Save(assignment).Error; err != nil {
		log.Printf("[UpdateAssignment] Error updating assignment %s: %v", id, err)
		return nil, fmt.Errorf("failed to update assignment: %w", err)
	}

	s.indexAssignment(*assignment)
	s.invalidateStats(userID)

	return assignment, nil
}

// applyStatusTransition moves the assignment to the new status. Entering
// completed stamps CompletionDate; leaving completed clears it. All edges
// between the three states are legal.
func applyStatusTransition(a *model.Assignment, newStatus string, now time.Time) {
	if newStatus == model.StatusCompleted && a.Status != model.StatusCompleted {
		completion := now
		a.CompletionDate = &completion
	}
	if newStatus != model.StatusCompleted && a.Status == model.StatusCompleted {
		a.CompletionDate = nil
	}
	a.Status = newStatus
}

// UpdateStatus changes only the status (and optionally completion notes),
// with the same transition side effects and rescoring as a full update.
func (s *AssignmentService) UpdateStatus(userID, id, status string, completionNotes *string) (*model.Assignment, error) {
	assignment, err := s.GetAssignment(userID, id)
	if err != nil {
		return nil, err
	}

	if !validStatus(status) {
		return nil, &ValidationError{Fields: map[string]string{
			"status": "status must be one of not_started, in_progress, completed",
		}}
	}

	now := time.Now()
	applyStatusTransition(assignment, status, now)
	if completionNotes != nil {
		assignment.CompletionNotes = *completionNotes
	}
	assignment.PriorityScore = ComputeScore(assignment.DueDate, assignment.EstimatedHours, assignment.PriorityLevel, now)

	if err := s.db.Save(assignment).Error; err != nil {
		log.Printf("[UpdateStatus] Error updating assignment %s: %v", id, err)
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	s.indexAssignment(*assignment)
	s.invalidateStats(userID)

	return assignment, nil
}

// CompleteAssignment is shorthand for transitioning to completed.
func (s *AssignmentService) CompleteAssignment(userID, id string) (*model.Assignment, error) {
	return s.UpdateStatus(userID, id, model.StatusCompleted, nil)
}

// DeleteAssignment hard-deletes an owned assignment.
func (s *AssignmentService) DeleteAssignment(userID, id string) error {
	assignment, err := s.GetAssignment(userID, id)
	if err != nil {
		return err
	}

	if err := s.db.Delete(assignment).Error; err != nil {
		log.Printf("[DeleteAssignment] Error deleting assignment %s: %v", id, err)
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	log.Printf("[DeleteAssignment] Assignment %s deleted", id)

	s.deindexAssignment(id)
	s.invalidateStats(userID)

	return nil
}

// ListAssignments applies the filter set and priority ordering, returning
// one page of results plus the total match count.
func (s *AssignmentService) ListAssignments(userID string, f ListFilters) ([]map[string]interface{}, int64, error) {
	now := time.Now()

	q := s.db.Model(&model.Assignment{}).Where("user_id = ?", userID)

	if f.Status != "" {
		if !validStatus(f.Status) {
			return nil, 0, &ValidationError{Fields: map[string]string{
				"status": "status must be one of not_started, in_progress, completed",
			}}
		}
		q = q.Where("status = ?", f.Status)
	}

	switch f.Urgency {
	case "":
	case "overdue":
		q = q.Scopes(Overdue(now))
	case "due_soon":
		q = q.Scopes(DueSoon(now, DueSoonWindowDays))
	default:
		return nil, 0, &ValidationError{Fields: map[string]string{
			"urgency": "urgency must be overdue or due_soon",
		}}
	}

	if f.Search != "" {
		q = q.Scopes(SearchTitleSubject(f.Search))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		log.Printf("[ListAssignments] Error counting assignments: %v", err)
		return nil, 0, fmt.Errorf("failed to count assignments: %w", err)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}

	var assignments []model.Assignment
	if err := q.Scopes(ByPriority).
		Offset((page - 1) * PageSize).
		Limit(PageSize).
		Find(&assignments).Error; err != nil {
		log.Printf("[ListAssignments] Error fetching assignments: %v", err)
		return nil, 0, fmt.Errorf("failed to fetch assignments: %w", err)
	}

	results := make([]map[string]interface{}, 0, len(assignments))
	for _, a := range assignments {
		results = append(results, assignmentResponse(a, now))
	}

	return results, total, nil
}

// RecalculatePriorities reapplies the scoring engine to every pending
// assignment of the owner, each from its own snapshot of now. Returns how
// many were rescored.
func (s *AssignmentService) RecalculatePriorities(userID string) (int, error) {
	var assignments []model.Assignment
	if err := s.db.Where("user_id = ?", userID).Scopes(Pending).Find(&assignments).Error; err != nil {
		log.Printf("[RecalculatePriorities] Error fetching pending assignments: %v", err)
		return 0, fmt.Errorf("failed to fetch pending assignments: %w", err)
	}

	for i := range assignments {
		now := time.Now()
		score := ComputeScore(assignments[i].DueDate, assignments[i].EstimatedHours, assignments[i].PriorityLevel, now)
		if err := s.db.Model(&assignments[i]).Update("priority_score", score).Error; err != nil {
			log.Printf("[RecalculatePriorities] Error updating score for %s: %v", assignments[i].ID, err)
			return 0, fmt.Errorf("failed to update priority score: %w", err)
		}
	}

	log.Printf("[RecalculatePriorities] Rescored %d assignments for user %s", len(assignments), userID)
	s.invalidateStats(userID)

	return len(assignments), nil
}

// assignmentResponse serializes an assignment along with its derived
// read-time attributes. The derived fields are computed here, never stored.
func assignmentResponse(a model.Assignment, now time.Time) map[string]interface{} {
	resp := map[string]interface{}{
		"id":               a.ID,
		"title":            a.Title,
		"subject":          a.Subject,
		"description":      a.Description,
		"due_date":         a.DueDate,
		"estimated_hours":  a.EstimatedHours,
		"priority_level":   a.PriorityLevel,
		"priority_score":   a.PriorityScore,
		"status":           a.Status,
		"completion_date":  a.CompletionDate,
		"completion_notes": a.CompletionNotes,
		"reminders_sent":   a.RemindersSent,
		"created_at":       a.CreatedAt,
		"updated_at":       a.UpdatedAt,
		"is_overdue":       a.IsOverdue(now),
		"days_remaining":   a.DaysRemaining(now),
		"urgency_level":    a.UrgencyLevel(now),
	}
	return resp
}

// AssignmentResponse is the exported serialization used by controllers.
func (s *AssignmentService) AssignmentResponse(a model.Assignment) map[string]interface{} {
	return assignmentResponse(a, time.Now())
}

func (s *AssignmentService) invalidateStats(userID string) {
	s.statsCache.Delete(statsCacheKey(userID))
}
