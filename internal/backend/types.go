package backend

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is a run record as returned by the API. It is kept as a JSON object
// so tool results pass every field through unmodified.
type Record map[string]any

// ID returns the record's "id" field
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// TriggerTaskBody is the request body of a trigger call
type TriggerTaskBody struct {
	Payload any            `json:"payload"`
	Options map[string]any `json:"options,omitempty"`
}

// ListRunsFilters are the run listing filters. Zero values are omitted from
// the query.
type ListRunsFilters struct {
	Status         []string
	TaskIdentifier []string
	Version        []string
	From           *time.Time
	To             *time.Time
	Period         string
	BulkAction     string
	Tag            []string
	Schedule       string
	IsTest         *bool
	Batch          string
}

// RunList is one page of runs
type RunList struct {
	Data       []Record       `json:"data"`
	Pagination map[string]any `json:"pagination"`
}

// APIError is a non-2xx response from the API
type APIError struct {
	Status  int
	Message string
	Body    json.RawMessage
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Status)
}
