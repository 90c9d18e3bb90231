package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditStore records agent invocations using SQLite.
type AuditStore struct {
	db *DB
}

// NewAuditStore creates a new SQLite-backed audit store.
func NewAuditStore(db *DB) *AuditStore {
	return &AuditStore{db: db}
}

// AuditEntry is one recorded agent invocation.
type AuditEntry struct {
	ID         string    `json:"id"`
	Operation  string    `json:"operation"`
	Prompt     string    `json:"prompt"`
	Status     string    `json:"status"`
	ResultIDs  []string  `json:"result_ids"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Record inserts an audit entry. The ID and timestamp are assigned here.
func (s *AuditStore) Record(operation, prompt, status string, resultIDs []string, errMsg string, duration time.Duration) error {
	ids, _ := json.Marshal(resultIDs)

	_, err := s.db.Exec(`
		INSERT INTO agent_audit_log (id, operation, prompt, status, result_ids, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		uuid.NewString(), operation, prompt, status, string(ids), errMsg,
		duration.Milliseconds(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// List returns the most recent audit entries, newest first.
func (s *AuditStore) List(limit int) ([]*AuditEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, operation, prompt, status, result_ids, error, duration_ms, created_at
		FROM agent_audit_log
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	entries := []*AuditEntry{}
	for rows.Next() {
		var e AuditEntry
		var ids string
		if err := rows.Scan(&e.ID, &e.Operation, &e.Prompt, &e.Status, &ids, &e.Error, &e.DurationMS, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if ids != "" {
			json.Unmarshal([]byte(ids), &e.ResultIDs)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
