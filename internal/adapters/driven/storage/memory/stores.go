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
	_ driven.PatientStore  = (*PatientStore)(nil)
	_ driven.DocumentStore = (*DocumentStore)(nil)
	_ driven.InvoiceStore  = (*InvoiceStore)(nil)
)

// PatientStore keeps patients in memory.
type PatientStore struct {
	mu       sync.RWMutex
	patients map[string]domain.Patient
}

// NewPatientStore creates an empty in-memory patient store.
func NewPatientStore() *PatientStore {
	return &PatientStore{patients: make(map[string]domain.Patient)}
}

// Save stores or updates a patient.
func (s *PatientStore) Save(ctx context.Context, patient *domain.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = now
	}
	patient.UpdatedAt = now
	s.patients[patient.ID] = *patient
	return nil
}

// Get retrieves a patient by ID.
func (s *PatientStore) Get(ctx context.Context, id string) (*domain.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	patient, ok := s.patients[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &patient, nil
}

// List returns all patients sorted by ID.
func (s *PatientStore) List(ctx context.Context) ([]domain.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Patient, 0, len(s.patients))
	for _, p := range s.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateHistory replaces a patient's summary and structured history.
func (s *PatientStore) UpdateHistory(ctx context.Context, id, summary string, history domain.MedicalHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	patient, ok := s.patients[id]
	if !ok {
		return domain.ErrNotFound
	}
	patient.Summary = summary
	patient.History = history
	patient.UpdatedAt = time.Now().UTC()
	s.patients[id] = patient
	return nil
}

// DocumentStore keeps medical documents in memory.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]domain.MedicalDocument
}

// NewDocumentStore creates an empty in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]domain.MedicalDocument)}
}

// Save stores or updates a document.
func (s *DocumentStore) Save(ctx context.Context, doc *domain.MedicalDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	s.docs[doc.ID] = *doc
	return nil
}

// Get retrieves a document by ID.
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.MedicalDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListByPatient returns all documents for a patient, oldest first.
func (s *DocumentStore) ListByPatient(ctx context.Context, patientID string) ([]domain.MedicalDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.MedicalDocument
	for _, doc := range s.docs {
		if doc.PatientID == patientID {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Delete removes a document.
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

// InvoiceStore keeps invoices in memory.
type InvoiceStore struct {
	mu       sync.RWMutex
	invoices map[string]domain.Invoice
}

// NewInvoiceStore creates an empty in-memory invoice store.
func NewInvoiceStore() *InvoiceStore {
	return &InvoiceStore{invoices: make(map[string]domain.Invoice)}
}

// Save stores or updates an invoice.
func (s *InvoiceStore) Save(ctx context.Context, inv *domain.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	s.invoices[inv.ID] = *inv
	return nil
}

// Get retrieves an invoice by ID.
func (s *InvoiceStore) Get(ctx context.Context, id string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoices[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &inv, nil
}

// ListByPatient returns a patient's invoices, newest first.
func (s *InvoiceStore) ListByPatient(ctx context.Context, patientID string) ([]domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Invoice
	for _, inv := range s.invoices {
		if inv.PatientID == patientID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
