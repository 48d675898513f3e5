package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"

	model "github.com/assignmate/AssignMate/models"
)

// ExportAssignments writes a JSON snapshot of the owner's assignments to
// S3 and returns the object URL.
func (s *AssignmentService) ExportAssignments(userID string) (string, error) {
	if s.s3Client == nil {
		return "", fmt.Errorf("export is not configured: missing S3 credentials")
	}

	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		return "", fmt.Errorf("bucket name not configured")
	}

	now := time.Now()

	var assignments []model.Assignment
	if err := s.db.Where("user_id = ?", userID).Scopes(ByPriority).Find(&assignments).Error; err != nil {
		log.Printf("[ExportAssignments] Error fetching assignments: %v", err)
		return "", fmt.Errorf("failed to fetch assignments: %w", err)
	}

	snapshot := make([]map[string]interface{}, 0, len(assignments))
	for _, a := range assignments {
		snapshot = append(snapshot, assignmentResponse(a, now))
	}

	body, err := json.MarshalIndent(map[string]interface{}{
		"exported_at": now.UTC(),
		"count":       len(snapshot),
		"assignments": snapshot,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal export: %w", err)
	}

	key := fmt.Sprintf("exports/%s/%d.json", userID, now.Unix())
	_, err = s.s3Client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		log.Printf("[ExportAssignments] S3 upload error: %v", err)
		return "", fmt.Errorf("failed to upload export to S3: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s", os.Getenv("S3_PUBLIC_URL"), bucket, key)
	log.Printf("[ExportAssignments] Exported %d assignments for user %s to %s", len(snapshot), userID, url)
	return url, nil
}
