package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driven"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driving"
	"github.com/mediflow-labs/mediflow/internal/logger"
)

// Anomaly rule thresholds and windows.
const (
	oddHourEnd = 5

	rapidAccessWindow    = 60 * time.Second
	rapidAccessThreshold = 5

	failedLoginWindow    = 5 * time.Minute
	failedLoginThreshold = 3

	patternWindow    = 2 * time.Minute
	patternThreshold = 4
)

// Ensure SecurityService implements the interface.
var _ driving.AnomalyDetector = (*SecurityService)(nil)

// SecurityService evaluates audit events against the anomaly rules and
// raises persisted alerts.
type SecurityService struct {
	audit  driven.AuditStore
	alerts driven.AlertStore
}

// NewSecurityService creates a security service.
func NewSecurityService(audit driven.AuditStore, alerts driven.AlertStore) *SecurityService {
	return &SecurityService{audit: audit, alerts: alerts}
}

// Detect appends the event to the audit log and returns the alerts it
// triggers. The event must be recorded before the windowed rules run so the
// event itself counts towards its own thresholds.
func (s *SecurityService) Detect(ctx context.Context, event domain.AuditEvent) ([]domain.SecurityAlert, error) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := s.audit.Append(ctx, &event); err != nil {
		return nil, fmt.Errorf("recording audit event: %w", err)
	}

	var alerts []domain.SecurityAlert

	// Rule 1: access between midnight and 05:59.
	if hour := event.Timestamp.Hour(); hour >= 0 && hour <= oddHourEnd {
		alerts = append(alerts, s.alert(event, "odd_hour_access", domain.SeverityMedium,
			fmt.Sprintf("Unusual access time: %d:00 (0-5 AM)", hour), nil))
	}

	// Rule 2: many distinct patient records touched in a short window.
	if event.ResourceType == domain.ResourcePatient {
		recent, err := s.audit.EventsByActor(ctx, event.Actor, event.Timestamp.Add(-rapidAccessWindow))
		if err != nil {
			return alerts, fmt.Errorf("querying recent access: %w", err)
		}
		patients := make(map[string]struct{})
		for _, e := range recent {
			if e.ResourceType == domain.ResourcePatient {
				patients[e.ResourceID] = struct{}{}
			}
		}
		if len(patients) >= rapidAccessThreshold {
			alerts = append(alerts, s.alert(event, "rapid_access", domain.SeverityHigh,
				fmt.Sprintf("Rapid patient access: %d patients in 60 seconds", len(patients)),
				map[string]any{"patientCount": len(patients)}))
		}
	}

	// Rule 3: repeated failed logins.
	if event.Action == domain.ActionLoginFailed {
		count, err := s.audit.CountByActorAction(ctx, event.Actor, domain.ActionLoginFailed, event.Timestamp.Add(-failedLoginWindow))
		if err != nil {
			return alerts, fmt.Errorf("counting failed logins: %w", err)
		}
		if count >= failedLoginThreshold {
			alerts = append(alerts, s.alert(event, "brute_force_attempt", domain.SeverityCritical,
				fmt.Sprintf("Multiple failed logins: %d attempts in 5 minutes", count),
				map[string]any{"attemptCount": count}))
		}
	}

	// Rule 4: patient record deletion is always flagged.
	if event.Action == domain.ActionDelete && event.ResourceType == domain.ResourcePatient {
		alerts = append(alerts, s.alert(event, "dangerous_operation", domain.SeverityHigh,
			"Patient record deletion detected", nil))
	}

	// Rule 5: one actor sweeping across many resource types.
	recent, err := s.audit.EventsByActor(ctx, event.Actor, event.Timestamp.Add(-patternWindow))
	if err != nil {
		return alerts, fmt.Errorf("querying recent activity: %w", err)
	}
	types := make(map[string]struct{})
	for _, e := range recent {
		types[e.ResourceType] = struct{}{}
	}
	if len(types) >= patternThreshold {
		alerts = append(alerts, s.alert(event, "suspicious_pattern", domain.SeverityMedium,
			fmt.Sprintf("Unusual activity pattern: accessed %d resource types rapidly", len(types)), nil))
	}

	return alerts, nil
}

// Process runs one security job: detect, persist and log every alert.
func (s *SecurityService) Process(ctx context.Context, job domain.AuditJob) error {
	alerts, err := s.Detect(ctx, job.Event)
	if err != nil {
		return err
	}

	for i := range alerts {
		if err := s.alerts.Save(ctx, &alerts[i]); err != nil {
			return fmt.Errorf("saving alert: %w", err)
		}
		logger.Warn("SECURITY ALERT [%s] %s: %s (actor=%s action=%s resource=%s/%s)",
			alerts[i].Severity, alerts[i].Type, alerts[i].Reason,
			alerts[i].Actor, alerts[i].Action, alerts[i].ResourceType, alerts[i].ResourceID)
	}

	return nil
}

// alert builds a SecurityAlert echoing the triggering event.
func (s *SecurityService) alert(event domain.AuditEvent, alertType string, severity domain.AlertSeverity, reason string, metadata map[string]any) domain.SecurityAlert {
	return domain.SecurityAlert{
		ID:           uuid.New().String(),
		Type:         alertType,
		Severity:     severity,
		Reason:       reason,
		Actor:        event.Actor,
		Action:       event.Action,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		Metadata:     metadata,
		CreatedAt:    time.Now().UTC(),
	}
}
