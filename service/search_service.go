package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	model "github.com/assignmate/AssignMate/models"
)

const searchIndex = "assignments"

// indexAssignment mirrors the record into Elasticsearch for full-text
// search. Indexing is best effort: a missing client or a failed request is
// logged and never breaks the write path.
func (s *AssignmentService) indexAssignment(a model.Assignment) {
	if s.esClient == nil {
		return
	}

	doc := map[string]interface{}{
		"user_id":        a.UserID,
		"title":          a.Title,
		"subject":        a.Subject,
		"description":    a.Description,
		"due_date":       a.DueDate,
		"priority_score": a.PriorityScore,
		"status":         a.Status,
		"timestamp":      time.Now().UTC(),
	}

	body, err := json.Marshal(doc)
	if err != nil {
		log.Printf("[indexAssignment] Error marshaling assignment %s: %v", a.ID, err)
		return
	}

	res, err := s.esClient.Index(
		searchIndex,
		bytes.NewReader(body),
		s.esClient.Index.WithDocumentID(a.ID),
		s.esClient.Index.WithContext(context.Background()),
	)
	if err != nil {
		log.Printf("[indexAssignment] Elasticsearch indexing error: %v", err)
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Printf("[indexAssignment] Elasticsearch indexing failed: %s", res.String())
	}
}

// deindexAssignment removes a deleted record from the search index.
func (s *AssignmentService) deindexAssignment(id string) {
	if s.esClient == nil {
		return
	}

	res, err := s.esClient.Delete(
		searchIndex,
		id,
		s.esClient.Delete.WithContext(context.Background()),
	)
	if err != nil {
		log.Printf("[deindexAssignment] Elasticsearch delete error: %v", err)
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Printf("[deindexAssignment] Elasticsearch delete failed: %s", res.String())
	}
}

// SearchAssignments runs a full-text query over the caller's assignments.
// Without Elasticsearch it degrades to the SQL substring search used by
// the listing filter.
func (s *AssignmentService) SearchAssignments(userID, query string) ([]map[string]interface{}, error) {
	if s.esClient == nil {
		return s.searchAssignmentsSQL(userID, query)
	}

	searchQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":  query,
						"fields": []string{"title", "subject", "description"},
					},
				},
				"filter": map[string]interface{}{
					"term": map[string]interface{}{
						"user_id": userID,
					},
				},
			},
		},
	}
	body, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := s.esClient.Search(
		s.esClient.Search.WithContext(context.Background()),
		s.esClient.Search.WithIndex(searchIndex),
		s.esClient.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search failed: %s", res.String())
	}

	var result map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hitsMap, ok := result["hits"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid hits structure in search response")
	}
	hitsArray, ok := hitsMap["hits"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid hits array in search response")
	}

	var matches []map[string]interface{}
	for _, hit := range hitsArray {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		source, ok := hitMap["_source"].(map[string]interface{})
		if !ok {
			continue
		}
		if id, ok := hitMap["_id"].(string); ok {
			source["id"] = id
		}
		matches = append(matches, source)
	}

	return matches, nil
}

// searchAssignmentsSQL is the fallback substring search against title and
// subject, case-insensitive.
func (s *AssignmentService) searchAssignmentsSQL(userID, query string) ([]map[string]interface{}, error) {
	now := time.Now()

	var assignments []model.Assignment
	if err := s.db.Where("user_id = ?", userID).
		Scopes(SearchTitleSubject(query), ByPriority).
		Find(&assignments).Error; err != nil {
		log.Printf("[searchAssignmentsSQL] Error searching assignments: %v", err)
		return nil, fmt.Errorf("failed to search assignments: %w", err)
	}

	results := make([]map[string]interface{}, 0, len(assignments))
	for _, a := range assignments {
		results = append(results, assignmentResponse(a, now))
	}
	return results, nil
}
