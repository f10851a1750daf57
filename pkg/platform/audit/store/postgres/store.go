// Package postgres persists audit events to PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"stampd/pkg/platform/audit"

	"github.com/google/uuid"
)

// Store implements audit.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New builds a Store over an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts an audit event into the audit_events table.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, timestamp, action, provider, address_hash,
			signature_type, decision, reason, request_id, client_ua
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		event.Timestamp,
		string(event.Action),
		event.Provider,
		event.AddressHash,
		event.SignatureType,
		event.Decision,
		event.Reason,
		event.RequestID,
		event.ClientUA,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListRecent returns the N most recent events, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT timestamp, action, provider, address_hash,
			   signature_type, decision, reason, request_id, client_ua
		FROM audit_events
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListByAddressHash returns events for one (hashed) address, newest first.
func (s *Store) ListByAddressHash(ctx context.Context, addressHash string) ([]audit.Event, error) {
	query := `
		SELECT timestamp, action, provider, address_hash,
			   signature_type, decision, reason, request_id, client_ua
		FROM audit_events
		WHERE address_hash = $1
		ORDER BY timestamp DESC
	`

	rows, err := s.db.QueryContext(ctx, query, addressHash)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			event  audit.Event
			action string
		)
		err := rows.Scan(
			&event.Timestamp,
			&action,
			&event.Provider,
			&event.AddressHash,
			&event.SignatureType,
			&event.Decision,
			&event.Reason,
			&event.RequestID,
			&event.ClientUA,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Action = audit.Action(action)
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
