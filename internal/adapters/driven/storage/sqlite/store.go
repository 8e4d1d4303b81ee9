package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/mediflow-labs/mediflow/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/mediflow-labs/mediflow/internal/core/domain"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to all
// store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.mediflow/data/mediflow.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".mediflow", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "mediflow.db")

	// WAL mode for better concurrency between agent workers
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// PatientStore returns a PatientStore interface backed by this store.
func (s *Store) PatientStore() driven.PatientStore {
	return &patientStore{store: s}
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// DiagnosticStore returns a DiagnosticStore interface backed by this store.
func (s *Store) DiagnosticStore() driven.DiagnosticStore {
	return &diagnosticStore{store: s}
}

// InvoiceStore returns an InvoiceStore interface backed by this store.
func (s *Store) InvoiceStore() driven.InvoiceStore {
	return &invoiceStore{store: s}
}

// AuditStore returns an AuditStore interface backed by this store.
func (s *Store) AuditStore() driven.AuditStore {
	return &auditStore{store: s}
}

// AlertStore returns an AlertStore interface backed by this store.
func (s *Store) AlertStore() driven.AlertStore {
	return &alertStore{store: s}
}

// VectorStore returns a VectorStore interface backed by this store.
func (s *Store) VectorStore() driven.VectorStore {
	return &vectorStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Patient Store ====================

// patientStore implements driven.PatientStore.
type patientStore struct {
	store *Store
}

var _ driven.PatientStore = (*patientStore)(nil)

// Save stores or updates a patient.
func (s *patientStore) Save(ctx context.Context, patient *domain.Patient) error {
	historyJSON, err := json.Marshal(patient.History)
	if err != nil {
		return fmt.Errorf("marshalling history: %w", err)
	}

	now := time.Now().UTC()
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = now
	}
	patient.UpdatedAt = now

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO patients (id, name, age, summary, history, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			age = excluded.age,
			summary = excluded.summary,
			history = excluded.history,
			updated_at = excluded.updated_at
	`, patient.ID, patient.Name, patient.Age, patient.Summary, string(historyJSON),
		patient.CreatedAt, patient.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving patient: %w", err)
	}
	return nil
}

// Get retrieves a patient by ID.
func (s *patientStore) Get(ctx context.Context, id string) (*domain.Patient, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, age, summary, history, created_at, updated_at
		FROM patients WHERE id = ?
	`, id)

	var patient domain.Patient
	var historyJSON string
	if err := row.Scan(&patient.ID, &patient.Name, &patient.Age, &patient.Summary,
		&historyJSON, &patient.CreatedAt, &patient.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning patient: %w", err)
	}

	if err := json.Unmarshal([]byte(historyJSON), &patient.History); err != nil {
		return nil, fmt.Errorf("unmarshalling history: %w", err)
	}

	return &patient, nil
}

// List returns all patients.
func (s *patientStore) List(ctx context.Context) ([]domain.Patient, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, name, age, summary, history, created_at, updated_at
		FROM patients ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("querying patients: %w", err)
	}
	defer rows.Close()

	var patients []domain.Patient
	for rows.Next() {
		var patient domain.Patient
		var historyJSON string
		if err := rows.Scan(&patient.ID, &patient.Name, &patient.Age, &patient.Summary,
			&historyJSON, &patient.CreatedAt, &patient.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning patient: %w", err)
		}
		if err := json.Unmarshal([]byte(historyJSON), &patient.History); err != nil {
			return nil, fmt.Errorf("unmarshalling history: %w", err)
		}
		patients = append(patients, patient)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating patients: %w", err)
	}

	return patients, nil
}

// UpdateHistory replaces a patient's summary and structured history.
func (s *patientStore) UpdateHistory(ctx context.Context, id, summary string, history domain.MedicalHistory) error {
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshalling history: %w", err)
	}

	result, err := s.store.db.ExecContext(ctx, `
		UPDATE patients SET summary = ?, history = ?, updated_at = ?
		WHERE id = ?
	`, summary, string(historyJSON), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating history: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// Save stores or updates a document.
func (s *documentStore) Save(ctx context.Context, doc *domain.MedicalDocument) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, patient_id, title, text, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			patient_id = excluded.patient_id,
			title = excluded.title,
			text = excluded.text,
			metadata = excluded.metadata
	`, doc.ID, doc.PatientID, doc.Title, doc.Text, string(metadataJSON), doc.CreatedAt)

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// Get retrieves a document by ID.
func (s *documentStore) Get(ctx context.Context, id string) (*domain.MedicalDocument, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, patient_id, title, text, metadata, created_at
		FROM documents WHERE id = ?
	`, id)

	var doc domain.MedicalDocument
	var metadataJSON string
	if err := row.Scan(&doc.ID, &doc.PatientID, &doc.Title, &doc.Text,
		&metadataJSON, &doc.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}

	return &doc, nil
}

// ListByPatient returns all documents for a patient.
func (s *documentStore) ListByPatient(ctx context.Context, patientID string) ([]domain.MedicalDocument, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, patient_id, title, text, metadata, created_at
		FROM documents WHERE patient_id = ? ORDER BY created_at
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.MedicalDocument
	for rows.Next() {
		var doc domain.MedicalDocument
		var metadataJSON string
		if err := rows.Scan(&doc.ID, &doc.PatientID, &doc.Title, &doc.Text,
			&metadataJSON, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// Delete removes a document.
func (s *documentStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}
