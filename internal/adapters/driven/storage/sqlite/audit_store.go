package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driven"
)

// ==================== Audit Store ====================

// auditStore implements driven.AuditStore.
type auditStore struct {
	store *Store
}

var _ driven.AuditStore = (*auditStore)(nil)

// Append records an event.
func (s *auditStore) Append(ctx context.Context, event *domain.AuditEvent) error {
	metadataJSON, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, actor, action, resource_type, resource_id, timestamp, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, event.ID, event.Actor, event.Action, event.ResourceType, event.ResourceID,
		event.Timestamp, string(metadataJSON))

	if err != nil {
		return fmt.Errorf("appending audit event: %w", err)
	}
	return nil
}

// EventsByActor returns the actor's events since the given time.
func (s *auditStore) EventsByActor(ctx context.Context, actor string, since time.Time) ([]domain.AuditEvent, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, actor, action, resource_type, resource_id, timestamp, metadata
		FROM audit_events WHERE actor = ? AND timestamp >= ?
		ORDER BY timestamp
	`, actor, since)
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var event domain.AuditEvent
		var metadataJSON string
		if err := rows.Scan(&event.ID, &event.Actor, &event.Action, &event.ResourceType,
			&event.ResourceID, &event.Timestamp, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &event.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit events: %w", err)
	}

	return events, nil
}

// CountByActorAction counts the actor's events with the given action since
// the given time.
func (s *auditStore) CountByActorAction(ctx context.Context, actor, action string, since time.Time) (int, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM audit_events
		WHERE actor = ? AND action = ? AND timestamp >= ?
	`, actor, action, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting audit events: %w", err)
	}
	return count, nil
}

// ==================== Alert Store ====================

// alertStore implements driven.AlertStore.
type alertStore struct {
	store *Store
}

var _ driven.AlertStore = (*alertStore)(nil)

// Save stores an alert.
func (s *alertStore) Save(ctx context.Context, alert *domain.SecurityAlert) error {
	metadataJSON, err := json.Marshal(alert.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO security_alerts (id, type, severity, reason, actor, action,
			resource_type, resource_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, alert.ID, alert.Type, string(alert.Severity), alert.Reason, alert.Actor,
		alert.Action, alert.ResourceType, alert.ResourceID, string(metadataJSON),
		alert.CreatedAt)

	if err != nil {
		return fmt.Errorf("saving alert: %w", err)
	}
	return nil
}

// List returns recent alerts, newest first, up to limit.
func (s *alertStore) List(ctx context.Context, limit int) ([]domain.SecurityAlert, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, type, severity, reason, actor, action, resource_type,
			resource_id, metadata, created_at
		FROM security_alerts ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.SecurityAlert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alerts: %w", err)
	}

	return alerts, nil
}

// scanAlert scans an alert from *sql.Rows.
func scanAlert(rows *sql.Rows) (*domain.SecurityAlert, error) {
	var alert domain.SecurityAlert
	var severity, metadataJSON string

	if err := rows.Scan(&alert.ID, &alert.Type, &severity, &alert.Reason,
		&alert.Actor, &alert.Action, &alert.ResourceType, &alert.ResourceID,
		&metadataJSON, &alert.CreatedAt); err != nil {
		return nil, fmt.Errorf("scanning alert: %w", err)
	}

	alert.Severity = domain.AlertSeverity(severity)

	if err := json.Unmarshal([]byte(metadataJSON), &alert.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}

	return &alert, nil
}
