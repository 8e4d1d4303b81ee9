package driven

import (
	"context"
	"time"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
)

// PatientStore persists patient records.
type PatientStore interface {
	// Save stores or updates a patient.
	Save(ctx context.Context, patient *domain.Patient) error

	// Get retrieves a patient by ID. Returns domain.ErrNotFound when
	// absent.
	Get(ctx context.Context, id string) (*domain.Patient, error)

	// List returns all patients.
	List(ctx context.Context) ([]domain.Patient, error)

	// UpdateHistory replaces a patient's summary and structured history.
	UpdateHistory(ctx context.Context, id, summary string, history domain.MedicalHistory) error
}

// DocumentStore persists raw medical documents.
type DocumentStore interface {
	// Save stores or updates a document.
	Save(ctx context.Context, doc *domain.MedicalDocument) error

	// Get retrieves a document by ID.
	Get(ctx context.Context, id string) (*domain.MedicalDocument, error)

	// ListByPatient returns all documents for a patient.
	ListByPatient(ctx context.Context, patientID string) ([]domain.MedicalDocument, error)

	// Delete removes a document.
	Delete(ctx context.Context, id string) error
}

// DiagnosticStore persists diagnostic question/answer records through their
// lifecycle. Completed and errored records are terminal.
type DiagnosticStore interface {
	// Create stores a new pending diagnostic.
	Create(ctx context.Context, d *domain.Diagnostic) error

	// Get retrieves a diagnostic by ID.
	Get(ctx context.Context, id string) (*domain.Diagnostic, error)

	// ListByPatient returns a patient's diagnostic history, newest first.
	ListByPatient(ctx context.Context, patientID string) ([]domain.Diagnostic, error)

	// MarkProcessing advances a pending record to processing.
	MarkProcessing(ctx context.Context, id string) error

	// Complete finalises a record with the generated answer, the
	// retrieved-chunk snapshot, the confidence and the total duration.
	Complete(ctx context.Context, id string, response string, chunks []domain.RetrievedChunk, confidence int, elapsed time.Duration) error

	// Fail finalises a record with an error message.
	Fail(ctx context.Context, id string, message string) error
}

// InvoiceStore persists billing outcomes.
type InvoiceStore interface {
	// Save stores or updates an invoice.
	Save(ctx context.Context, inv *domain.Invoice) error

	// Get retrieves an invoice by ID.
	Get(ctx context.Context, id string) (*domain.Invoice, error)

	// ListByPatient returns a patient's invoices, newest first.
	ListByPatient(ctx context.Context, patientID string) ([]domain.Invoice, error)
}

// AuditStore persists audit events and answers the time-windowed queries
// the anomaly rules run.
type AuditStore interface {
	// Append records an event.
	Append(ctx context.Context, event *domain.AuditEvent) error

	// EventsByActor returns the actor's events since the given time.
	EventsByActor(ctx context.Context, actor string, since time.Time) ([]domain.AuditEvent, error)

	// CountByActorAction counts the actor's events with the given action
	// since the given time.
	CountByActorAction(ctx context.Context, actor, action string, since time.Time) (int, error)
}

// AlertStore persists security alerts raised by the anomaly detector.
type AlertStore interface {
	// Save stores an alert.
	Save(ctx context.Context, alert *domain.SecurityAlert) error

	// List returns recent alerts, newest first, up to limit.
	List(ctx context.Context, limit int) ([]domain.SecurityAlert, error)
}
