package services

import (
	"testing"
	"time"

	"github.com/agiledragon/gomonkey/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	model "github.com/assignmate/AssignMate/models"
)

const testUserID = "11111111-1111-1111-1111-111111111111"
const otherUserID = "22222222-2222-2222-2222-222222222222"

func newTestService(t *testing.T) *AssignmentService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Assignment{}))

	// Elasticsearch, S3 and redis stay unconfigured: the service skips them.
	return &AssignmentService{db: db}
}

func fixedClock(t *testing.T) *gomonkey.Patches {
	t.Helper()
	patches := gomonkey.ApplyFunc(time.Now, func() time.Time {
		return FixedTime
	})
	t.Cleanup(patches.Reset)
	return patches
}

func TestCreateAssignmentComputesAndPersistsScore(t *testing.T) {
	fixedClock(t)
	svc := newTestService(t)

	created, err := svc.CreateAssignment(testUserID, CreateAssignmentInput{
		Title:          "Physics lab report",
		Subject:        "Physics",
		DueDate:        FixedTime.Add(12 * time.Hour),
		EstimatedHours: hoursPtr(12),
		PriorityLevel:  model.PriorityCritical,
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusNotStarted, created.Status)
	assert.Equal(t, float64(95), created.PriorityScore)
	assert.NotEmpty(t, created.ID)
	assert.Nil(t, created.CompletionDate)

	var stored model.Assignment
	require.NoError(t, svc.db.First(&stored, "id = ?", created.ID).Error)
	assert.Equal(t, float64(95), stored.PriorityScore)
	assert.Equal(t, testUserID, stored.UserID)
}

func TestCreateAssignmentValidation(t *testing.T) {
	fixedClock(t)
	svc := newTestService(t)

	tests := []struct {
		name      string
		input     CreateAssignmentInput
		wantField string
	}{
		{
			name: "missing title",
			input: CreateAssignmentInput{
				DueDate:       FixedTime.AddDate(0, 0, 1),
				PriorityLevel: model.PriorityHigh,
			},
			wantField: "title",
		},
		{
			name: "due date in the past",
			input: CreateAssignmentInput{
				Title:         "Late already",
				DueDate:       FixedTime.Add(-time.Hour),
				PriorityLevel: model.PriorityHigh,
			},
			wantField: "due_date",
		},
		{
			name: "missing due date",
			input: CreateAssignmentInput{
				Title:         "No deadline",
				PriorityLevel: model.PriorityHigh,
			},
			wantField: "due_date",
		},
		{
			name: "estimated hours out of range",
			input: CreateAssignmentInput{
				Title:          "Too big",
				DueDate:        FixedTime.AddDate(0, 0, 1),
				EstimatedHours: hoursPtr(1000),
				PriorityLevel:  model.PriorityHigh,
			},
			wantField: "estimated_hours",
		},
		{
			name: "invalid priority level",
			input: CreateAssignmentInput{
				Title:         "Bad enum",
				DueDate:       FixedTime.AddDate(0, 0, 1),
				PriorityLevel: "whenever",
			},
			wantField: "priority_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateAssignment(testUserID, tt.input)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.Fields, tt.wantField)
		})
	}

	// Nothing may be persisted on a rejected create.
	var count int64
	require.NoError(t, svc.db.Model(&model.Assignment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestStatusTransitionsManageCompletionDate(t *testing.T) {
	fixedClock(t)
	svc := newTestService(t)

	created, err := svc.CreateAssignment(testUserID, CreateAssignmentInput{
		Title:         "Essay draft",
		DueDate:       FixedTime.AddDate(0, 0, 2),
		PriorityLevel: model.PriorityMedium,
	})
	require.NoError(t, err)

	// Entering completed stamps the completion date.
	completed, err := svc.CompleteAssignment(testUserID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletionDate)
	assert.Equal(t, FixedTime, completed.CompletionDate.UTC())

	// Leaving completed clears it and triggers rescoring.
	reopened, err := svc.UpdateStatus(testUserID, created.ID, model.StatusInProgress, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, reopened.Status)
	assert.Nil(t, reopened.CompletionDate)
	assert.Equal(t, ComputeScore(reopened.DueDate, nil, model.PriorityMedium, FixedTime), reopened.PriorityScore)

	// The invariant holds in storage too.
	var stored model.Assignment
	require.NoError(t, svc.db.First(&stored, "id = ?", created.ID).Error)
	assert.Equal(t, stored.Status == model.StatusCompleted, stored.CompletionDate != nil)
}

func TestStatusTransitionRecordsCompletionNotes(t *testing.T) {
	fixedClock(t)
	svc := newTestService(t)

	created, err := svc.CreateAssignment(testUserID, CreateAssignmentInput{
		Title:         "Reading summary",
		DueDate:       FixedTime.AddDate(0, 0, 4),
		PriorityLevel: model.PriorityLow,
	})
	require.NoError(t, err)

	notes := "Turned in via portal"
	updated, err := svc.UpdateStatus(testUserID, created.ID, model.StatusCompleted, &notes)
	require.NoError(t, err)
	assert.Equal(t, notes, updated.CompletionNotes)
}

func TestFullUpdateRescoresChangedFields(t *testing.T) {
	fixedClock(t)
	svc := newTestService(t)

	created, err := svc.CreateAssignment(testUserID, CreateAssignmentInput{
		Title:          "Group project",
		DueDate:        FixedTime.AddDate(0, 0, 15),
		EstimatedHours: hoursPtr(1),
		PriorityLevel:  model.PriorityMedium,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(30), created.PriorityScore)

	// Pull the deadline in and raise the stakes; the score must follow.
	updated, err := svc.UpdateAssignment(testUserID, created.ID, UpdateAssignmentInput{
		CreateAssignmentInput: CreateAssignmentInput{
			Title:          "Group project",
			DueDate:        FixedTime.Add(12 * time.Hour),
			EstimatedHours: hoursPtr(12),
			PriorityLevel:  model.PriorityCritical,
		},
		Status: model.StatusInProgress,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(95), updated.PriorityScore)
	assert.Equal(t, model.StatusInProgress, updated.Status)
}

func TestOwnershipAndNotFoundAreDistinct(t *testing.T) {
	fixedClock(t)
	svc := newTestService(t)

	created, err := svc.CreateAssignment(testUserID, CreateAssignmentInput{
		Title:         "Private homework",
		DueDate:       FixedTime.AddDate(0, 0, 1),
		PriorityLevel: model.PriorityHigh,
	})
	require.NoError(t, err)

	_, err = svc.GetAssignment(otherUserID, created.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetAssignment(testUserID, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)

	// A foreign owner cannot mutate or delete either.
	err = svc.DeleteAssignment(otherUserID, created.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.UpdateStatus(otherUserID, created.ID, model.StatusCompleted, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	// The record is untouched.
	var count int64
	require.NoError(t, svc.db.Model(&model.Assignment{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func seedAssignment(t *testing.T, svc *AssignmentService, userID, title string, due time.Time, status string, score float64) model.Assignment {
	t.Helper()
	a := model.Assignment{
		UserID:        userID,
		Title:         title,
		DueDate:       due,
		PriorityLevel: model.PriorityMedium,
		Status:        status,
		PriorityScore: score,
	}
	require.NoError(t, svc.db.Create(&a).Error)
	return a
}

func TestListAssignmentsOrdering(t *testing.T) {
	fixedClock(t)
	svc := newTestService(t)

	seedAssignment(t, svc, testUserID, "mid score", FixedTime.AddDate(0, 0, 3), model.StatusNotStarted, 50)
	seedAssignment(t, svc, testUserID, "top score", FixedTime.AddDate(0, 0, 1), model.StatusNotStarted, 90)
	seedAssignment(t, svc, testUserID, "tie later due", FixedTime.AddDate(0, 0, 6), model.StatusNotStarted, 50)
	seedAssignment(t, svc, testUserID, "tie sooner due", FixedTime.AddDate(0, 0, 2), model.StatusNotStarted, 50)

	results, total, err := svc.ListAssignments(testUserID, ListFilters{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, results, 4)

	// Score descending, ties broken by soonest due date.
	titles := make([]string, 0, len(results))
	for _, r := range results {
		titles = append(titles, r["title"].(string))
	}
	assert.Equal(t, []string{"top score", "tie sooner due", "mid score", "tie later due"}, titles)

	prevScore := results[0]["priority_score"].(float64)
	for _, r := range results[1:] {
		score := r["priority_score"].(float64)
		assert.LessOrEqual(t, score, prevScore)
		prevScore = score
	}
}

func TestListAssignmentsFilters(t *testing.T) {
	fixedClock(t)
	svc := newTestService(t)

	overdue := seedAssignment(t, svc, testUserID, "overdue essay", FixedTime.AddDate(0, 0, -2), model.StatusNotStarted, 45)
	dueSoon := seedAssignment(t, svc, testUserID, "due soon quiz", FixedTime.AddDate(0, 0, 2), model.StatusInProgress, 60)
	farOut := seedAssignment(t, svc, testUserID, "far out paper", FixedTime.AddDate(0, 0, 30), model.StatusNotStarted, 15)
	seedAssignment(t, svc, testUserID, "finished lab", FixedTime.AddDate(0, 0, -1), model.StatusCompleted, 45)
	seedAssignment(t, svc, otherUserID, "someone elses work", FixedTime.AddDate(0, 0, 2), model.StatusNotStarted, 60)

	// Owner scoping: only the caller's rows are visible at all.
	results, total, err := svc.ListAssignments(testUserID, ListFilters{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)

	// Status filter.
	results, total, err = svc.ListAssignments(testUserID, ListFilters{Status: model.StatusInProgress})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, dueSoon.ID, results[0]["id"])

	// Overdue excludes the completed row even though it is past due.
	results, total, err = svc.ListAssignments(testUserID, ListFilters{Urgency: "overdue"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, overdue.ID, results[0]["id"])
	assert.Equal(t, true, results[0]["is_overdue"])
	assert.Equal(t, "overdue", results[0]["urgency_level"])

	// Due-soon is a forward window: the overdue row is excluded, so the
	// two filters can never share a record.
	results, total, err = svc.ListAssignments(testUserID, ListFilters{Urgency: "due_soon"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, dueSoon.ID, results[0]["id"])

	// Search matches title or subject, case-insensitively.
	results, total, err = svc.ListAssignments(testUserID, ListFilters{Search: "FAR OUT"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, farOut.ID, results[0]["id"])

	// Unknown filter values are rejected, not silently ignored.
	_, _, err = svc.ListAssignments(testUserID, ListFilters{Urgency: "someday"})
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
	_, _, err = svc.ListAssignments(testUserID, ListFilters{Status: "paused"})
	assert.ErrorAs(t, err, &vErr)
}

func TestListAssignmentsPagination(t *testing.T) {
	fixedClock(t)
	svc := newTestService(t)

	for i := 0; i < PageSize+5; i++ {
		seedAssignment(t, svc, testUserID, "item", FixedTime.AddDate(0, 0, 1+i%10), model.StatusNotStarted, float64(i))
	}

	first, total, err := svc.ListAssignments(testUserID, ListFilters{Page: 1})
	require.NoError(t, err)
	assert.EqualValues(t, PageSize+5, total)
	assert.Len(t, first, PageSize)

	second, _, err := svc.ListAssignments(testUserID, ListFilters{Page: 2})
	require.NoError(t, err)
	assert.Len(t, second, 5)
}

func TestRecalculatePrioritiesRefreshesPendingScores(t *testing.T) {
	fixedClock(t)
	svc := newTestService(t)

	stale := seedAssignment(t, svc, testUserID, "stale score", FixedTime.Add(12*time.Hour), model.StatusNotStarted, 1)
	done := seedAssignment(t, svc, testUserID, "already done", FixedTime.Add(12*time.Hour), model.StatusCompleted, 1)

	count, err := svc.RecalculatePriorities(testUserID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var refreshed model.Assignment
	require.NoError(t, svc.db.First(&refreshed, "id = ?", stale.ID).Error)
	assert.Equal(t, float64(45), refreshed.PriorityScore) // 35 + 0 + 10

	// Completed assignments are left alone.
	var untouched model.Assignment
	require.NoError(t, svc.db.First(&untouched, "id = ?", done.ID).Error)
	assert.Equal(t, float64(1), untouched.PriorityScore)
}

// Recomputing twice with a pinned clock is a no-op the second time.
func TestRecalculatePrioritiesIdempotent(t *testing.T) {
	fixedClock(t)
	svc := newTestService(t)

	a := seedAssignment(t, svc, testUserID, "steady", FixedTime.AddDate(0, 0, 5), model.StatusInProgress, 0)

	_, err := svc.RecalculatePriorities(testUserID)
	require.NoError(t, err)
	var first model.Assignment
	require.NoError(t, svc.db.First(&first, "id = ?", a.ID).Error)

	_, err = svc.RecalculatePriorities(testUserID)
	require.NoError(t, err)
	var second model.Assignment
	require.NoError(t, svc.db.First(&second, "id = ?", a.ID).Error)

	assert.Equal(t, first.PriorityScore, second.PriorityScore)
}

func TestGetDashboard(t *testing.T) {
	fixedClock(t)
	svc := newTestService(t)

	seedAssignment(t, svc, testUserID, "overdue essay", FixedTime.AddDate(0, 0, -2), model.StatusNotStarted, 45)
	seedAssignment(t, svc, testUserID, "due soon quiz", FixedTime.AddDate(0, 0, 2), model.StatusInProgress, 60)
	seedAssignment(t, svc, testUserID, "finished lab", FixedTime.AddDate(0, 0, -1), model.StatusCompleted, 45)
	for i := 0; i < 6; i++ {
		seedAssignment(t, svc, testUserID, "filler", FixedTime.AddDate(0, 0, 20), model.StatusNotStarted, float64(10+i))
	}

	top, stats, err := svc.GetDashboard(testUserID)
	require.NoError(t, err)

	// Top list is capped at five pending assignments, best score first.
	assert.Len(t, top, 5)
	assert.Equal(t, "due soon quiz", top[0]["title"])

	assert.EqualValues(t, 9, stats.Total)
	assert.EqualValues(t, 8, stats.Pending)
	assert.EqualValues(t, 1, stats.Overdue)
	assert.EqualValues(t, 1, stats.DueSoon)
}

func TestSearchAssignmentsFallsBackToSQL(t *testing.T) {
	fixedClock(t)
	svc := newTestService(t)

	match := seedAssignment(t, svc, testUserID, "Algebra problem set", FixedTime.AddDate(0, 0, 3), model.StatusNotStarted, 55)
	seedAssignment(t, svc, testUserID, "History reading", FixedTime.AddDate(0, 0, 3), model.StatusNotStarted, 40)
	seedAssignment(t, svc, otherUserID, "Algebra for someone else", FixedTime.AddDate(0, 0, 3), model.StatusNotStarted, 55)

	results, err := svc.SearchAssignments(testUserID, "algebra")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, match.ID, results[0]["id"])
}

func TestDeleteAssignmentIsHardDelete(t *testing.T) {
	fixedClock(t)
	svc := newTestService(t)

	created, err := svc.CreateAssignment(testUserID, CreateAssignmentInput{
		Title:         "Disposable",
		DueDate:       FixedTime.AddDate(0, 0, 1),
		PriorityLevel: model.PriorityLow,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAssignment(testUserID, created.ID))

	_, err = svc.GetAssignment(testUserID, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEstimatedHoursRoundedToOneDecimal(t *testing.T) {
	fixedClock(t)
	svc := newTestService(t)

	created, err := svc.CreateAssignment(testUserID, CreateAssignmentInput{
		Title:          "Precise work",
		DueDate:        FixedTime.AddDate(0, 0, 1),
		EstimatedHours: hoursPtr(2.55),
		PriorityLevel:  model.PriorityMedium,
	})
	require.NoError(t, err)
	require.NotNil(t, created.EstimatedHours)
	assert.InDelta(t, 2.6, *created.EstimatedHours, 1e-9)
}
