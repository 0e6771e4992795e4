// Package audit keeps an append-only trail of who changed what. Every
// mutating handler records an event; nothing in the system updates or
// deletes one.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	ActorUser  string
}

// where renders the filter as a WHERE clause with 1-based placeholders.
// An empty filter yields an empty clause.
func (f Filter) where() (string, []any) {
	conds := make([]string, 0, 3)
	args := make([]any, 0, 3)
	appendCond := func(expr, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}
	appendCond("action = $%d", f.Action)
	appendCond("entity_type = $%d", f.EntityType)
	appendCond("actor_user_id::text = $%d", f.ActorUser)
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

const eventColumns = "id, COALESCE(actor_user_id::text, ''), action, entity_type, entity_id, COALESCE(request_id, ''), COALESCE(ip, ''), created_at"

type Service struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Service {
	return &Service{DB: db}
}

// Record writes one audit event. The before/after snapshots are optional and
// stored as JSON; an unmarshalable snapshot fails the write rather than
// recording a half-truth.
func (s *Service) Record(ctx context.Context, actorID, action, entityType, entityID, requestID, ip string, before, after any) error {
	beforeJSON, err := encodeSnapshot(before)
	if err != nil {
		return err
	}
	afterJSON, err := encodeSnapshot(after)
	if err != nil {
		return err
	}

	_, err = s.DB.Exec(ctx, `
    INSERT INTO audit_events (actor_user_id, action, entity_type, entity_id, before_json, after_json, request_id, ip)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
  `, nullUUID(actorID), action, entityType, entityID, beforeJSON, afterJSON, requestID, ip)
	return err
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := filter.where()
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM audit_events"+where, args...).Scan(&total)
	return total, err
}

func (s *Service) List(ctx context.Context, filter Filter, includeDetails bool, limit, offset int) ([]Event, error) {
	cols := eventColumns
	if includeDetails {
		cols += ", before_json, after_json"
	}
	where, args := filter.where()
	query := fmt.Sprintf(
		"SELECT %s FROM audit_events%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		cols, where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows, includeDetails)
}

// ListExport returns the whole trail, newest first, for CSV export.
func (s *Service) ListExport(ctx context.Context) ([]Event, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+eventColumns+" FROM audit_events ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows, false)
}

func collectEvents(rows pgx.Rows, withDetails bool) ([]Event, error) {
	var out []Event
	for rows.Next() {
		var evt Event
		targets := []any{&evt.ID, &evt.ActorID, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP, &evt.CreatedAt}
		if withDetails {
			targets = append(targets, &evt.Before, &evt.After)
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func encodeSnapshot(snapshot any) ([]byte, error) {
	if snapshot == nil {
		return nil, nil
	}
	return json.Marshal(snapshot)
}

func nullUUID(value string) any {
	if value == "" {
		return nil
	}
	return value
}
