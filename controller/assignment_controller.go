package controller

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	middleware "github.com/assignmate/AssignMate/middleware"
	service "github.com/assignmate/AssignMate/service"
)

// AssignmentController manages HTTP requests for assignments.
type AssignmentController struct {
	service *service.AssignmentService
}

// NewAssignmentController initializes the controller with the service.
func NewAssignmentController(service *service.AssignmentService) *AssignmentController {
	return &AssignmentController{service}
}

// respondServiceError maps the service error taxonomy onto status codes.
// Not-found and forbidden are deliberately distinct.
func respondServiceError(ctx *gin.Context, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"errors": vErr.Fields})
	case errors.Is(err, service.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
	case errors.Is(err, service.ErrForbidden):
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You do not own this assignment"})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// CreateAssignment handles POST /assignments.
func (c *AssignmentController) CreateAssignment(ctx *gin.Context) {
	var input service.CreateAssignmentInput
	if err := ctx.BindJSON(&input); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	assignment, err := c.service.CreateAssignment(middleware.UserID(ctx), input)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message":    "Assignment created successfully",
		"assignment": c.service.AssignmentResponse(*assignment),
	})
}

// ListAssignments handles GET /assignments with optional status, urgency,
// search and page query parameters.
func (c *AssignmentController) ListAssignments(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))

	filters := service.ListFilters{
		Status:  ctx.Query("status"),
		Urgency: ctx.Query("urgency"),
		Search:  ctx.Query("search"),
		Page:    page,
	}

	assignments, total, err := c.service.ListAssignments(middleware.UserID(ctx), filters)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"assignments": assignments,
		"total":       total,
		"page":        filters.Page,
		"per_page":    service.PageSize,
	})
}

// GetAssignment handles GET /assignments/:id.
func (c *AssignmentController) GetAssignment(ctx *gin.Context) {
	assignment, err := c.service.GetAssignment(middleware.UserID(ctx), ctx.Param("id"))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"assignment": c.service.AssignmentResponse(*assignment)})
}

// UpdateAssignment handles PUT /assignments/:id.
func (c *AssignmentController) UpdateAssignment(ctx *gin.Context) {
	var input service.UpdateAssignmentInput
	if err := ctx.BindJSON(&input); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	assignment, err := c.service.UpdateAssignment(middleware.UserID(ctx), ctx.Param("id"), input)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":    "Assignment updated successfully",
		"assignment": c.service.AssignmentResponse(*assignment),
	})
}

// UpdateStatus handles PATCH /assignments/:id/status.
func (c *AssignmentController) UpdateStatus(ctx *gin.Context) {
	var input struct {
		Status          string  `json:"status"`
		CompletionNotes *string `json:"completion_notes"`
	}
	if err := ctx.BindJSON(&input); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	assignment, err := c.service.UpdateStatus(middleware.UserID(ctx), ctx.Param("id"), input.Status, input.CompletionNotes)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":    "Assignment status updated",
		"assignment": c.service.AssignmentResponse(*assignment),
	})
}

// CompleteAssignment handles PATCH /assignments/:id/complete.
func (c *AssignmentController) CompleteAssignment(ctx *gin.Context) {
	assignment, err := c.service.CompleteAssignment(middleware.UserID(ctx), ctx.Param("id"))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":    "Assignment marked as completed",
		"assignment": c.service.AssignmentResponse(*assignment),
	})
}

// DeleteAssignment handles DELETE /assignments/:id.
func (c *AssignmentController) DeleteAssignment(ctx *gin.Context) {
	if err := c.service.DeleteAssignment(middleware.UserID(ctx), ctx.Param("id")); err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Assignment deleted successfully"})
}

// RecalculatePriorities handles POST /assignments/recalculate.
func (c *AssignmentController) RecalculatePriorities(ctx *gin.Context) {
	count, err := c.service.RecalculatePriorities(middleware.UserID(ctx))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":      "Priority scores recalculated",
		"recalculated": count,
	})
}

// SearchAssignments handles GET /assignments/search.
func (c *AssignmentController) SearchAssignments(ctx *gin.Context) {
	query := ctx.Query("q")
	if query == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'q' is required"})
		return
	}

	results, err := c.service.SearchAssignments(middleware.UserID(ctx), query)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Search completed successfully",
		"results": results,
	})
}

// ExportAssignments handles POST /assignments/export.
func (c *AssignmentController) ExportAssignments(ctx *gin.Context) {
	url, err := c.service.ExportAssignments(middleware.UserID(ctx))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Assignments exported successfully",
		"url":     url,
	})
}

// GetDashboard handles GET /dashboard: top pending assignments by priority
// plus summary statistics.
func (c *AssignmentController) GetDashboard(ctx *gin.Context) {
	log.Println("AssignmentController: Building dashboard")

	assignments, stats, err := c.service.GetDashboard(middleware.UserID(ctx))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"assignments": assignments,
		"stats":       stats,
	})
}
