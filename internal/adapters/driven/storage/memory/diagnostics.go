package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driven"
)

// Ensure DiagnosticStore implements the interface.
var _ driven.DiagnosticStore = (*DiagnosticStore)(nil)

// DiagnosticStore keeps diagnostic records in memory.
type DiagnosticStore struct {
	mu      sync.RWMutex
	records map[string]domain.Diagnostic
}

// NewDiagnosticStore creates an empty in-memory diagnostic store.
func NewDiagnosticStore() *DiagnosticStore {
	return &DiagnosticStore{records: make(map[string]domain.Diagnostic)}
}

// Create stores a new pending diagnostic.
func (s *DiagnosticStore) Create(ctx context.Context, d *domain.Diagnostic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[d.ID]; exists {
		return domain.ErrAlreadyExists
	}

	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	if d.Status == "" {
		d.Status = domain.DiagnosticPending
	}
	s.records[d.ID] = *d
	return nil
}

// Get retrieves a diagnostic by ID.
func (s *DiagnosticStore) Get(ctx context.Context, id string) (*domain.Diagnostic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &d, nil
}

// ListByPatient returns a patient's diagnostic history, newest first.
func (s *DiagnosticStore) ListByPatient(ctx context.Context, patientID string) ([]domain.Diagnostic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Diagnostic
	for _, d := range s.records {
		if d.PatientID == patientID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// MarkProcessing advances a record to processing.
func (s *DiagnosticStore) MarkProcessing(ctx context.Context, id string) error {
	return s.update(id, func(d *domain.Diagnostic) error {
		if d.Terminal() {
			return fmt.Errorf("%w: diagnostic %s already %s", domain.ErrInvalidInput, id, d.Status)
		}
		d.Status = domain.DiagnosticProcessing
		return nil
	})
}

// Complete finalises a record with the generated answer.
func (s *DiagnosticStore) Complete(ctx context.Context, id string, response string, chunks []domain.RetrievedChunk, confidence int, elapsed time.Duration) error {
	return s.update(id, func(d *domain.Diagnostic) error {
		d.Status = domain.DiagnosticCompleted
		d.Response = response
		d.RetrievedChunks = chunks
		d.Confidence = confidence
		d.ProcessingTime = elapsed
		return nil
	})
}

// Fail finalises a record with an error message.
func (s *DiagnosticStore) Fail(ctx context.Context, id string, message string) error {
	return s.update(id, func(d *domain.Diagnostic) error {
		d.Status = domain.DiagnosticError
		d.ErrorMessage = message
		return nil
	})
}

// update applies fn to a stored record under the write lock.
func (s *DiagnosticStore) update(id string, fn func(*domain.Diagnostic) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	if err := fn(&d); err != nil {
		return err
	}
	d.UpdatedAt = time.Now().UTC()
	s.records[id] = d
	return nil
}
