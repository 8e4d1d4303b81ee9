package domain

import "time"

// DiagnosticStatus is the lifecycle state of a diagnostic exchange.
type DiagnosticStatus string

// Diagnostic lifecycle states. A record moves pending → processing →
// completed or error, and is terminal afterwards.
const (
	DiagnosticPending    DiagnosticStatus = "pending"
	DiagnosticProcessing DiagnosticStatus = "processing"
	DiagnosticCompleted  DiagnosticStatus = "completed"
	DiagnosticError      DiagnosticStatus = "error"
)

// Diagnostic represents one question/answer exchange for a patient.
// Records are append-only per patient: once completed or errored they are
// never mutated again.
type Diagnostic struct {
	// ID is the unique identifier for the exchange.
	ID string

	// PatientID is the patient whose records ground the answer.
	PatientID string

	// Question is the doctor's free-text question.
	Question string

	// Status is the lifecycle state.
	Status DiagnosticStatus

	// Response is the generated answer, set on completion.
	Response string

	// RetrievedChunks is the snapshot of context used to produce the
	// answer, in ranked order.
	RetrievedChunks []RetrievedChunk

	// Confidence is round(mean similarity * 100), an integer 0-100.
	// It is a retrieval-quality proxy, not a measure of answer
	// correctness.
	Confidence int

	// ProcessingTime is the total wall-clock duration of the job.
	ProcessingTime time.Duration

	// ErrorMessage is set when Status is DiagnosticError.
	ErrorMessage string

	// CreatedAt is when the question was submitted.
	CreatedAt time.Time

	// UpdatedAt is when the record last changed state.
	UpdatedAt time.Time
}

// Terminal reports whether the record has reached a final state.
func (d *Diagnostic) Terminal() bool {
	return d.Status == DiagnosticCompleted || d.Status == DiagnosticError
}

// NoContextResponse is the user-facing explanation stored when a patient has
// no indexed documents. This outcome is a completed diagnostic with
// confidence 0, not an error.
const NoContextResponse = "No medical records found for this patient. Please upload documents first."
