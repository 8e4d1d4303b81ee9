package domain

import "time"

// Queue names, one per agent domain. Jobs on different queues are fully
// independent of each other.
const (
	QueueIntake      = "intake"
	QueueRAG         = "rag"
	QueueDiagnostics = "diagnostics"
	QueueBilling     = "billing"
	QueueSecurity    = "security"
)

// Job is one dequeued unit of work. The payload is the JSON encoding of one
// of the *Job structs below, keyed by the queue it arrived on.
type Job struct {
	// ID is assigned at enqueue time.
	ID string `json:"id"`

	// Queue is the queue the job was consumed from.
	Queue string `json:"queue"`

	// Payload is the undecoded job body.
	Payload []byte `json:"payload"`

	// EnqueuedAt is when the job was submitted.
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// IntakeJob asks the intake agent to process a new patient document.
type IntakeJob struct {
	PatientID string         `json:"patientId"`
	Name      string         `json:"name,omitempty"`
	Age       int            `json:"age,omitempty"`
	RawText   string         `json:"rawText"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// IndexJob asks the indexer agent to (re)index one document's text.
type IndexJob struct {
	PatientID  string         `json:"patientId"`
	DocumentID string         `json:"docId"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// DiagnosticJob asks the diagnostics agent to answer one question.
type DiagnosticJob struct {
	DiagnosticID string `json:"diagnosticId"`
	PatientID    string `json:"patientId"`
	Question     string `json:"question"`
}

// BillingJob asks the billing agent to optimise and discount an invoice.
type BillingJob struct {
	InvoiceID   string             `json:"invoiceId"`
	PatientID   string             `json:"patientId"`
	Treatments  []Treatment        `json:"treatments"`
	Context     BillingContext     `json:"context"`
	Constraints BillingConstraints `json:"constraints"`
}

// AuditJob carries one audit event to the security agent.
type AuditJob struct {
	Event AuditEvent `json:"event"`
}
