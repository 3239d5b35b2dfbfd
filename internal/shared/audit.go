package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEntry represents a record stored in permission_audit_log.
type AuditEntry struct {
	ID           int64
	ActorID      int64
	TargetUserID int64
	Action       string
	Changes      map[string]any
	At           time.Time
}

// AuditLogger writes and lists permission change records.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, entry AuditEntry) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if entry.Action == "" {
		return errors.New("audit log requires an action")
	}
	changesJSON, err := json.Marshal(entry.Changes)
	if err != nil {
		return err
	}
	at := entry.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO permission_audit_log (actor_id, target_user_id, action, changes, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.ActorID, entry.TargetUserID, entry.Action, changesJSON, at)
	return err
}

// Recent returns the newest entries, capped at limit.
func (l *AuditLogger) Recent(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := l.pool.Query(ctx,
		`SELECT id, actor_id, target_user_id, action, changes, created_at
		 FROM permission_audit_log ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var entry AuditEntry
		var changes []byte
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.TargetUserID, &entry.Action, &changes, &entry.At); err != nil {
			return nil, err
		}
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &entry.Changes); err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
