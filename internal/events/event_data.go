package events

import (
	"encoding/json"
)

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// StandardPublishedData contains data for StandardPublished events
type StandardPublishedData struct {
	Code    string `json:"code"`
	Version int    `json:"version"`
}

// EventType returns the event type for StandardPublishedData
func (d *StandardPublishedData) EventType() EventType {
	return StandardPublished
}

// VerdictCreatedData contains data for VerdictCreated events
type VerdictCreatedData struct {
	VerdictID       string  `json:"verdict_id"`
	ISIN            string  `json:"isin"`
	StandardCode    string  `json:"standard_code"`
	StandardVersion int     `json:"standard_version"`
	Status          string  `json:"status"`
	Score           float64 `json:"score"`
}

// EventType returns the event type for VerdictCreatedData
func (d *VerdictCreatedData) EventType() EventType {
	return VerdictCreated
}

// VerdictSupersededData contains data for VerdictSuperseded events
type VerdictSupersededData struct {
	PriorVerdictID string `json:"prior_verdict_id"`
	NewVerdictID   string `json:"new_verdict_id"`
	ISIN           string `json:"isin"`
	StandardCode   string `json:"standard_code"`
}

// EventType returns the event type for VerdictSupersededData
func (d *VerdictSupersededData) EventType() EventType {
	return VerdictSuperseded
}

// TriggerDetectedData contains data for TriggerDetected events
type TriggerDetectedData struct {
	TriggerID   string  `json:"trigger_id"`
	ISIN        string  `json:"isin"`
	Type        string  `json:"type"`
	Severity    string  `json:"severity"`
	Materiality string  `json:"materiality"`
	Percent     float64 `json:"percent"`
}

// EventType returns the event type for TriggerDetectedData
func (d *TriggerDetectedData) EventType() EventType {
	return TriggerDetected
}

// TriggerReviewedData contains data for TriggerReviewed events
type TriggerReviewedData struct {
	TriggerID string `json:"trigger_id"`
	Reviewer  string `json:"reviewer"`
}

// EventType returns the event type for TriggerReviewedData
func (d *TriggerReviewedData) EventType() EventType {
	return TriggerReviewed
}

// PurificationComputedData contains data for PurificationComputed events
type PurificationComputedData struct {
	ResultID  string  `json:"result_id"`
	HoldingID string  `json:"holding_id"`
	Total     float64 `json:"total"`
	Status    string  `json:"status"`
}

// EventType returns the event type for PurificationComputedData
func (d *PurificationComputedData) EventType() EventType {
	return PurificationComputed
}

// OverrideApplied events notify the notification collaborator that a
// manual override superseded a computed result.
type OverrideAppliedData struct {
	OverrideID string  `json:"override_id"`
	ResultID   string  `json:"result_id"`
	HoldingID  string  `json:"holding_id"`
	NewValue   float64 `json:"new_value"`
	Author     string  `json:"author"`
}

// EventType returns the event type for OverrideAppliedData
func (d *OverrideAppliedData) EventType() EventType {
	return OverrideApplied
}

// ResultApprovedData contains data for ResultApproved events
type ResultApprovedData struct {
	ResultID string `json:"result_id"`
	Approver string `json:"approver"`
	NoOp     bool   `json:"no_op"` // already approved, audited anyway
}

// EventType returns the event type for ResultApprovedData
func (d *ResultApprovedData) EventType() EventType {
	return ResultApproved
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// GetTypedData attempts to convert the Data map to typed EventData
// Returns the typed data if conversion is successful, nil otherwise
func (e *Event) GetTypedData() EventData {
	if e.Data == nil {
		return nil
	}

	switch e.Type {
	case StandardPublished:
		var data StandardPublishedData
		if err := convertMapToStruct(e.Data, &data); err == nil {
			return &data
		}
	case VerdictCreated:
		var data VerdictCreatedData
		if err := convertMapToStruct(e.Data, &data); err == nil {
			return &data
		}
	case VerdictSuperseded:
		var data VerdictSupersededData
		if err := convertMapToStruct(e.Data, &data); err == nil {
			return &data
		}
	case TriggerDetected:
		var data TriggerDetectedData
		if err := convertMapToStruct(e.Data, &data); err == nil {
			return &data
		}
	case TriggerReviewed:
		var data TriggerReviewedData
		if err := convertMapToStruct(e.Data, &data); err == nil {
			return &data
		}
	case PurificationComputed:
		var data PurificationComputedData
		if err := convertMapToStruct(e.Data, &data); err == nil {
			return &data
		}
	case OverrideApplied:
		var data OverrideAppliedData
		if err := convertMapToStruct(e.Data, &data); err == nil {
			return &data
		}
	case ResultApproved:
		var data ResultApprovedData
		if err := convertMapToStruct(e.Data, &data); err == nil {
			return &data
		}
	case ErrorOccurred:
		var data ErrorEventData
		if err := convertMapToStruct(e.Data, &data); err == nil {
			return &data
		}
	}

	return nil
}

// convertMapToStruct converts a map[string]interface{} to a struct
func convertMapToStruct(m map[string]interface{}, v interface{}) error {
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonBytes, v)
}
