package domain

import "time"

// Audit actions and resource types referenced by the anomaly rules.
const (
	ActionLoginFailed = "login_failed"
	ActionDelete      = "delete"

	ResourcePatient = "patient"
)

// AuditEvent is one recorded action by an actor against a resource.
type AuditEvent struct {
	// ID is the unique identifier for the event.
	ID string

	// Actor is who performed the action (user id or service name).
	Actor string

	// Action is what was done: read, write, delete, login_failed...
	Action string

	// ResourceType is the kind of resource touched (patient, document,
	// billing, diagnostic).
	ResourceType string

	// ResourceID identifies the specific resource.
	ResourceID string

	// Timestamp is when the action happened.
	Timestamp time.Time

	// Metadata carries arbitrary event context.
	Metadata map[string]any
}

// AlertSeverity ranks how serious an anomaly is.
type AlertSeverity string

// Alert severities, lowest to highest.
const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// SecurityAlert is a persisted anomaly raised by the security agent.
type SecurityAlert struct {
	// ID is the unique identifier for the alert.
	ID string

	// Type names the rule that fired (odd_hour_access, rapid_access,
	// brute_force_attempt, dangerous_operation, suspicious_pattern).
	Type string

	// Severity is the rule's assessment.
	Severity AlertSeverity

	// Reason is a human-readable explanation.
	Reason string

	// Actor, Action, ResourceType and ResourceID echo the triggering
	// event for investigation.
	Actor        string
	Action       string
	ResourceType string
	ResourceID   string

	// Metadata carries rule-specific figures (attempt counts...).
	Metadata map[string]any

	// CreatedAt is when the alert was raised.
	CreatedAt time.Time
}
