package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// AuditRepository appends journaled state transitions. Snapshots are
// msgpack-encoded so arbitrary entity shapes round-trip compactly
// without a per-entity schema.
type AuditRepository struct {
	db  *sql.DB // ledger.db
	log zerolog.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB, log zerolog.Logger) *AuditRepository {
	return &AuditRepository{
		db:  db,
		log: log.With().Str("repository", "audit").Logger(),
	}
}

// Append journals one state transition. before and after may be nil.
func (r *AuditRepository) Append(entityType, entityID, action, actor string, before, after interface{}) (*AuditEntry, error) {
	beforeSnap, err := encodeSnapshot(before)
	if err != nil {
		return nil, fmt.Errorf("failed to encode before snapshot: %w", err)
	}
	afterSnap, err := encodeSnapshot(after)
	if err != nil {
		return nil, fmt.Errorf("failed to encode after snapshot: %w", err)
	}

	entry := AuditEntry{
		ID:         uuid.New().String(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Actor:      actor,
		Before:     beforeSnap,
		After:      afterSnap,
		CreatedAt:  time.Now(),
	}

	_, err = r.db.Exec(`
		INSERT INTO audit_entries (id, entity_type, entity_id, action, actor, before_snapshot, after_snapshot, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.EntityType, entry.EntityID, entry.Action, entry.Actor,
		entry.Before, entry.After, entry.CreatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to append audit entry: %w", err)
	}
	return &entry, nil
}

// GetTrail returns every entry for an entity, oldest first
func (r *AuditRepository) GetTrail(entityID string) ([]AuditEntry, error) {
	rows, err := r.db.Query(`
		SELECT id, entity_type, entity_id, action, actor, before_snapshot, after_snapshot, created_at
		FROM audit_entries WHERE entity_id = ? ORDER BY created_at ASC`, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit trail: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var entry AuditEntry
		var createdAt int64
		if err := rows.Scan(&entry.ID, &entry.EntityType, &entry.EntityID, &entry.Action,
			&entry.Actor, &entry.Before, &entry.After, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entry.CreatedAt = time.Unix(0, createdAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}
	return entries, nil
}

// DecodeSnapshot unpacks a msgpack snapshot into dest
func DecodeSnapshot(snapshot []byte, dest interface{}) error {
	if len(snapshot) == 0 {
		return nil
	}
	return msgpack.Unmarshal(snapshot, dest)
}

func encodeSnapshot(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return msgpack.Marshal(v)
}
