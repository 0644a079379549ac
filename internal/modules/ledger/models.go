// Package ledger is the override and audit ledger: the only mutable,
// shared surface of the engine. Overrides and audit entries are
// strictly append-only; no update or delete operation exists on either.
package ledger

import "time"

// Override is a manual correction of a computed purification total.
// The computed value stays on the PurificationResult row; the override
// never replaces it in storage, only at read time.
type Override struct {
	ID        string    `json:"id"`
	ResultID  string    `json:"result_id"`
	NewValue  float64   `json:"new_value"`
	Reason    string    `json:"reason"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditEntry is one journaled state transition. Before and after
// snapshots are msgpack-encoded copies of the entity around the
// transition; either may be empty.
type AuditEntry struct {
	ID         string    `json:"id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Action     string    `json:"action"`
	Actor      string    `json:"actor"`
	Before     []byte    `json:"before,omitempty"`
	After      []byte    `json:"after,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
