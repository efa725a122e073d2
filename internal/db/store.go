// Package db provides database connectivity, migrations and the audit event log.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Event types recorded for applied intents.
const (
	EventItemCreated     = "workitem_created"
	EventItemUpdated     = "workitem_updated"
	EventRelationAdded   = "relation_added"
	EventRelationRemoved = "relation_removed"
)

// Store provides persistence for audit events.
type Store struct {
	db *sql.DB
}

// NewStore creates an event store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Event is one applied change against the remote store.
type Event struct {
	ID           int64
	Time         string
	Organization string
	Project      string
	ItemID       int
	Type         string
	Message      string
	DataJSON     string
}

// EventFilter narrows ListEvents. Zero fields do not constrain.
type EventFilter struct {
	Organization string
	Project      string
	ItemID       int
	Limit        int
}

// RecordEvent appends an event. Time defaults to now.
func (s *Store) RecordEvent(ctx context.Context, ev Event) error {
	ts := ev.Time
	if ts == "" {
		ts = time.Now().UTC().Format(time.RFC3339)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO events(ts, organization, project, item_id, type, message, data_json)
		VALUES(?, ?, ?, ?, ?, ?, ?)`,
		ts, ev.Organization, ev.Project, ev.ItemID, ev.Type, ev.Message, nullableString(ev.DataJSON)); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListEvents returns events newest first.
func (s *Store) ListEvents(ctx context.Context, filter EventFilter) ([]Event, error) {
	query := `SELECT id, ts, organization, project, item_id, type, message, data_json FROM events WHERE 1=1`
	var args []any
	if filter.Organization != "" {
		query += " AND organization=?"
		args = append(args, filter.Organization)
	}
	if filter.Project != "" {
		query += " AND project=?"
		args = append(args, filter.Project)
	}
	if filter.ItemID != 0 {
		query += " AND item_id=?"
		args = append(args, filter.ItemID)
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var ev Event
		var data sql.NullString
		if err := rows.Scan(&ev.ID, &ev.Time, &ev.Organization, &ev.Project, &ev.ItemID, &ev.Type, &ev.Message, &data); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.DataJSON = data.String
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// PruneEvents deletes events older than before and reports how many went.
func (s *Store) PruneEvents(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE ts < ?`, before.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
