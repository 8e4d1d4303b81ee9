package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driven"
)

// ==================== Diagnostic Store ====================

// diagnosticStore implements driven.DiagnosticStore.
type diagnosticStore struct {
	store *Store
}

var _ driven.DiagnosticStore = (*diagnosticStore)(nil)

// Create stores a new pending diagnostic.
func (s *diagnosticStore) Create(ctx context.Context, d *domain.Diagnostic) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	if d.Status == "" {
		d.Status = domain.DiagnosticPending
	}

	chunksJSON, err := json.Marshal(d.RetrievedChunks)
	if err != nil {
		return fmt.Errorf("marshalling chunks: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO diagnostics (id, patient_id, question, status, response,
			retrieved_chunks, confidence, processing_time_ms, error_message,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.PatientID, d.Question, string(d.Status), d.Response,
		string(chunksJSON), d.Confidence, d.ProcessingTime.Milliseconds(),
		d.ErrorMessage, d.CreatedAt, d.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("creating diagnostic: %w", err)
	}
	return nil
}

// Get retrieves a diagnostic by ID.
func (s *diagnosticStore) Get(ctx context.Context, id string) (*domain.Diagnostic, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, patient_id, question, status, response, retrieved_chunks,
			confidence, processing_time_ms, error_message, created_at, updated_at
		FROM diagnostics WHERE id = ?
	`, id)

	return scanDiagnostic(row.Scan)
}

// ListByPatient returns a patient's diagnostic history, newest first.
func (s *diagnosticStore) ListByPatient(ctx context.Context, patientID string) ([]domain.Diagnostic, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, patient_id, question, status, response, retrieved_chunks,
			confidence, processing_time_ms, error_message, created_at, updated_at
		FROM diagnostics WHERE patient_id = ? ORDER BY created_at DESC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("querying diagnostics: %w", err)
	}
	defer rows.Close()

	var out []domain.Diagnostic
	for rows.Next() {
		d, err := scanDiagnostic(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating diagnostics: %w", err)
	}

	return out, nil
}

// MarkProcessing advances a pending record to processing. Terminal records
// are rejected.
func (s *diagnosticStore) MarkProcessing(ctx context.Context, id string) error {
	result, err := s.store.db.ExecContext(ctx, `
		UPDATE diagnostics SET status = ?, updated_at = ?
		WHERE id = ? AND status NOT IN (?, ?)
	`, string(domain.DiagnosticProcessing), time.Now().UTC(), id,
		string(domain.DiagnosticCompleted), string(domain.DiagnosticError))
	if err != nil {
		return fmt.Errorf("marking processing: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if affected == 0 {
		d, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: diagnostic %s already %s", domain.ErrInvalidInput, id, d.Status)
	}
	return nil
}

// Complete finalises a record with the generated answer.
func (s *diagnosticStore) Complete(ctx context.Context, id string, response string, chunks []domain.RetrievedChunk, confidence int, elapsed time.Duration) error {
	chunksJSON, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("marshalling chunks: %w", err)
	}

	result, err := s.store.db.ExecContext(ctx, `
		UPDATE diagnostics SET status = ?, response = ?, retrieved_chunks = ?,
			confidence = ?, processing_time_ms = ?, updated_at = ?
		WHERE id = ?
	`, string(domain.DiagnosticCompleted), response, string(chunksJSON),
		confidence, elapsed.Milliseconds(), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("completing diagnostic: %w", err)
	}

	return requireAffected(result)
}

// Fail finalises a record with an error message.
func (s *diagnosticStore) Fail(ctx context.Context, id string, message string) error {
	result, err := s.store.db.ExecContext(ctx, `
		UPDATE diagnostics SET status = ?, error_message = ?, updated_at = ?
		WHERE id = ?
	`, string(domain.DiagnosticError), message, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failing diagnostic: %w", err)
	}

	return requireAffected(result)
}

// scanDiagnostic scans a diagnostic row via the given scan function.
func scanDiagnostic(scan func(dest ...any) error) (*domain.Diagnostic, error) {
	var d domain.Diagnostic
	var status, chunksJSON string
	var processingMs int64

	if err := scan(&d.ID, &d.PatientID, &d.Question, &status, &d.Response,
		&chunksJSON, &d.Confidence, &processingMs, &d.ErrorMessage,
		&d.CreatedAt, &d.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning diagnostic: %w", err)
	}

	d.Status = domain.DiagnosticStatus(status)
	d.ProcessingTime = time.Duration(processingMs) * time.Millisecond

	if chunksJSON != "" {
		if err := json.Unmarshal([]byte(chunksJSON), &d.RetrievedChunks); err != nil {
			return nil, fmt.Errorf("unmarshalling chunks: %w", err)
		}
	}

	return &d, nil
}

// ==================== Invoice Store ====================

// invoiceStore implements driven.InvoiceStore.
type invoiceStore struct {
	store *Store
}

var _ driven.InvoiceStore = (*invoiceStore)(nil)

// Save stores or updates an invoice.
func (s *invoiceStore) Save(ctx context.Context, inv *domain.Invoice) error {
	discountsJSON, err := json.Marshal(inv.Discounts)
	if err != nil {
		return fmt.Errorf("marshalling discounts: %w", err)
	}
	treatmentsJSON, err := json.Marshal(inv.Treatments)
	if err != nil {
		return fmt.Errorf("marshalling treatments: %w", err)
	}

	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO invoices (id, patient_id, subtotal, total, discounts, treatments, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			patient_id = excluded.patient_id,
			subtotal = excluded.subtotal,
			total = excluded.total,
			discounts = excluded.discounts,
			treatments = excluded.treatments
	`, inv.ID, inv.PatientID, inv.Subtotal, inv.Total,
		string(discountsJSON), string(treatmentsJSON), inv.CreatedAt)

	if err != nil {
		return fmt.Errorf("saving invoice: %w", err)
	}
	return nil
}

// Get retrieves an invoice by ID.
func (s *invoiceStore) Get(ctx context.Context, id string) (*domain.Invoice, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, patient_id, subtotal, total, discounts, treatments, created_at
		FROM invoices WHERE id = ?
	`, id)

	return scanInvoice(row.Scan)
}

// ListByPatient returns a patient's invoices, newest first.
func (s *invoiceStore) ListByPatient(ctx context.Context, patientID string) ([]domain.Invoice, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, patient_id, subtotal, total, discounts, treatments, created_at
		FROM invoices WHERE patient_id = ? ORDER BY created_at DESC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("querying invoices: %w", err)
	}
	defer rows.Close()

	var out []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoices: %w", err)
	}

	return out, nil
}

// scanInvoice scans an invoice row via the given scan function.
func scanInvoice(scan func(dest ...any) error) (*domain.Invoice, error) {
	var inv domain.Invoice
	var discountsJSON, treatmentsJSON string

	if err := scan(&inv.ID, &inv.PatientID, &inv.Subtotal, &inv.Total,
		&discountsJSON, &treatmentsJSON, &inv.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning invoice: %w", err)
	}

	if err := json.Unmarshal([]byte(discountsJSON), &inv.Discounts); err != nil {
		return nil, fmt.Errorf("unmarshalling discounts: %w", err)
	}
	if err := json.Unmarshal([]byte(treatmentsJSON), &inv.Treatments); err != nil {
		return nil, fmt.Errorf("unmarshalling treatments: %w", err)
	}

	return &inv, nil
}

// requireAffected converts a zero-row update into ErrNotFound.
func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// isUniqueViolation reports whether the error is a primary key conflict.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
