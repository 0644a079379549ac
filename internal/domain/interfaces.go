package domain

// AuditRecorder journals a state transition into the append-only audit
// ledger. Defined here so the evaluation pipeline can record entries
// without importing the ledger module. Before and after snapshots may be
// nil when there is no meaningful prior or resulting state.
type AuditRecorder interface {
	Record(entityType, entityID, action, actor string, before, after interface{}) error
}

// Audit entity types
const (
	AuditEntityVerdict = "verdict"
	AuditEntityTrigger = "trigger"
	AuditEntityResult  = "purification_result"
)

// Audit actions
const (
	AuditVerdictCreated       = "verdict_created"
	AuditTriggerDetected      = "trigger_detected"
	AuditTriggerReviewed      = "trigger_reviewed"
	AuditPurificationComputed = "purification_computed"
	AuditOverrideApplied      = "override_applied"
	AuditApprovalGranted      = "approval_granted"
)
