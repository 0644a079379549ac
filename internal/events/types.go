// Package events provides event management functionality.
package events

import (
	"time"
)

// EventType represents different event types
type EventType string

const (
	StandardPublished    EventType = "STANDARD_PUBLISHED"
	VerdictCreated       EventType = "VERDICT_CREATED"
	VerdictSuperseded    EventType = "VERDICT_SUPERSEDED"
	TriggerDetected      EventType = "TRIGGER_DETECTED"
	TriggerReviewed      EventType = "TRIGGER_REVIEWED"
	PurificationComputed EventType = "PURIFICATION_COMPUTED"
	OverrideApplied      EventType = "OVERRIDE_APPLIED"
	ResultApproved       EventType = "RESULT_APPROVED"
	ErrorOccurred        EventType = "ERROR_OCCURRED"
)

// Event represents a system event with typed data
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}
