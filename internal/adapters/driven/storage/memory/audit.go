package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driven"
)

// Ensure implementations satisfy the interfaces.
var (
	_ driven.AuditStore = (*AuditStore)(nil)
	_ driven.AlertStore = (*AlertStore)(nil)
)

// AuditStore keeps audit events in memory, append-only.
type AuditStore struct {
	mu     sync.RWMutex
	events []domain.AuditEvent
}

// NewAuditStore creates an empty in-memory audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

// Append records an event.
func (s *AuditStore) Append(ctx context.Context, event *domain.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	s.events = append(s.events, *event)
	return nil
}

// EventsByActor returns the actor's events since the given time.
func (s *AuditStore) EventsByActor(ctx context.Context, actor string, since time.Time) ([]domain.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.AuditEvent
	for _, e := range s.events {
		if e.Actor == actor && !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

// CountByActorAction counts the actor's events with the given action since
// the given time.
func (s *AuditStore) CountByActorAction(ctx context.Context, actor, action string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.events {
		if e.Actor == actor && e.Action == action && !e.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

// AlertStore keeps security alerts in memory.
type AlertStore struct {
	mu     sync.RWMutex
	alerts []domain.SecurityAlert
}

// NewAlertStore creates an empty in-memory alert store.
func NewAlertStore() *AlertStore {
	return &AlertStore{}
}

// Save stores an alert.
func (s *AlertStore) Save(ctx context.Context, alert *domain.SecurityAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	s.alerts = append(s.alerts, *alert)
	return nil
}

// List returns recent alerts, newest first, up to limit.
func (s *AlertStore) List(ctx context.Context, limit int) ([]domain.SecurityAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SecurityAlert, len(s.alerts))
	copy(out, s.alerts)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
