package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening must not re-run applied migrations.
	store, err = NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestPatientStoreRoundtrip(t *testing.T) {
	store := newTestStore(t)
	patients := store.PatientStore()
	ctx := context.Background()

	patient := &domain.Patient{
		ID:   "p1",
		Name: "Ada Lovelace",
		Age:  36,
		History: domain.MedicalHistory{
			Allergies:  []string{"penicillin"},
			Conditions: []string{"migraine"},
			Vitals:     map[string]any{"bloodPressure": "120/80"},
		},
	}
	require.NoError(t, patients.Save(ctx, patient))

	got, err := patients.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.Name)
	assert.Equal(t, []string{"penicillin"}, got.History.Allergies)
	assert.Equal(t, "120/80", got.History.Vitals["bloodPressure"])
	assert.False(t, got.CreatedAt.IsZero())
}

func TestPatientStoreGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.PatientStore().Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPatientStoreUpdateHistory(t *testing.T) {
	store := newTestStore(t)
	patients := store.PatientStore()
	ctx := context.Background()

	require.NoError(t, patients.Save(ctx, &domain.Patient{ID: "p1", Name: "Ada"}))

	history := domain.MedicalHistory{Medications: []string{"sumatriptan"}}
	require.NoError(t, patients.UpdateHistory(ctx, "p1", "chronic migraine", history))

	got, err := patients.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "chronic migraine", got.Summary)
	assert.Equal(t, []string{"sumatriptan"}, got.History.Medications)

	err = patients.UpdateHistory(ctx, "missing", "x", domain.MedicalHistory{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStoreRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PatientStore().Save(ctx, &domain.Patient{ID: "p1", Name: "Ada"}))

	docs := store.DocumentStore()
	doc := &domain.MedicalDocument{
		ID:        "d1",
		PatientID: "p1",
		Title:     "Discharge summary",
		Text:      "Patient recovered well.",
		Metadata:  map[string]any{"wordCount": float64(3)},
	}
	require.NoError(t, docs.Save(ctx, doc))

	got, err := docs.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "Discharge summary", got.Title)
	assert.Equal(t, float64(3), got.Metadata["wordCount"])

	list, err := docs.ListByPatient(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, docs.Delete(ctx, "d1"))
	_, err = docs.Get(ctx, "d1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDiagnosticLifecycle(t *testing.T) {
	store := newTestStore(t)
	diags := store.DiagnosticStore()
	ctx := context.Background()

	d := &domain.Diagnostic{ID: "dx1", PatientID: "p1", Question: "How are the vitals?"}
	require.NoError(t, diags.Create(ctx, d))
	assert.Equal(t, domain.DiagnosticPending, d.Status)

	assert.ErrorIs(t, diags.Create(ctx, d), domain.ErrAlreadyExists)

	require.NoError(t, diags.MarkProcessing(ctx, "dx1"))

	chunks := []domain.RetrievedChunk{{ChunkID: "d1::0", DocumentID: "d1", Text: "BP 120/80", Similarity: 0.91}}
	require.NoError(t, diags.Complete(ctx, "dx1", "Vitals are stable.", chunks, 91, 1500*time.Millisecond))

	got, err := diags.Get(ctx, "dx1")
	require.NoError(t, err)
	assert.Equal(t, domain.DiagnosticCompleted, got.Status)
	assert.Equal(t, "Vitals are stable.", got.Response)
	assert.Equal(t, 91, got.Confidence)
	assert.Equal(t, 1500*time.Millisecond, got.ProcessingTime)
	require.Len(t, got.RetrievedChunks, 1)
	assert.Equal(t, "d1::0", got.RetrievedChunks[0].ChunkID)

	// Terminal records cannot re-enter processing.
	err = diags.MarkProcessing(ctx, "dx1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDiagnosticFail(t *testing.T) {
	store := newTestStore(t)
	diags := store.DiagnosticStore()
	ctx := context.Background()

	require.NoError(t, diags.Create(ctx, &domain.Diagnostic{ID: "dx1", PatientID: "p1", Question: "q"}))
	require.NoError(t, diags.Fail(ctx, "dx1", "model unavailable"))

	got, err := diags.Get(ctx, "dx1")
	require.NoError(t, err)
	assert.Equal(t, domain.DiagnosticError, got.Status)
	assert.Equal(t, "model unavailable", got.ErrorMessage)
}

func TestDiagnosticListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	diags := store.DiagnosticStore()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"dx1", "dx2", "dx3"} {
		require.NoError(t, diags.Create(ctx, &domain.Diagnostic{
			ID: id, PatientID: "p1", Question: "q",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	list, err := diags.ListByPatient(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "dx3", list[0].ID)
	assert.Equal(t, "dx1", list[2].ID)
}

func TestInvoiceStoreRoundtrip(t *testing.T) {
	store := newTestStore(t)
	invoices := store.InvoiceStore()
	ctx := context.Background()

	inv := &domain.Invoice{
		ID:        "inv1",
		PatientID: "p1",
		Subtotal:  100,
		Total:     87,
		Discounts: []domain.Discount{{Type: "general", Amount: 3, Description: "General discount"}},
		Treatments: []domain.OptimizedTreatment{
			{ItemID: "t1", OriginalName: "MRI", OriginalCost: 100, SelectedName: "MRI", SelectedCost: 100},
		},
	}
	require.NoError(t, invoices.Save(ctx, inv))

	got, err := invoices.Get(ctx, "inv1")
	require.NoError(t, err)
	assert.Equal(t, 87.0, got.Total)
	require.Len(t, got.Discounts, 1)
	assert.Equal(t, "general", got.Discounts[0].Type)

	list, err := invoices.ListByPatient(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAuditStoreWindowedQueries(t *testing.T) {
	store := newTestStore(t)
	audit := store.AuditStore()
	ctx := context.Background()

	now := time.Now().UTC()
	events := []domain.AuditEvent{
		{ID: "e1", Actor: "dr.smith", Action: "read", ResourceType: "patient", ResourceID: "p1", Timestamp: now.Add(-10 * time.Minute)},
		{ID: "e2", Actor: "dr.smith", Action: domain.ActionLoginFailed, ResourceType: "session", Timestamp: now.Add(-2 * time.Minute)},
		{ID: "e3", Actor: "dr.smith", Action: domain.ActionLoginFailed, ResourceType: "session", Timestamp: now.Add(-1 * time.Minute)},
		{ID: "e4", Actor: "dr.jones", Action: "read", ResourceType: "patient", ResourceID: "p2", Timestamp: now},
	}
	for i := range events {
		require.NoError(t, audit.Append(ctx, &events[i]))
	}

	recent, err := audit.EventsByActor(ctx, "dr.smith", now.Add(-5*time.Minute))
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "e2", recent[0].ID, "events are returned oldest first")

	count, err := audit.CountByActorAction(ctx, "dr.smith", domain.ActionLoginFailed, now.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = audit.CountByActorAction(ctx, "dr.jones", domain.ActionLoginFailed, now.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestAlertStoreListLimit(t *testing.T) {
	store := newTestStore(t)
	alerts := store.AlertStore()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"a1", "a2", "a3"} {
		require.NoError(t, alerts.Save(ctx, &domain.SecurityAlert{
			ID: id, Type: "odd_hour_access", Severity: domain.SeverityMedium,
			Reason: "test", Actor: "dr.smith",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	list, err := alerts.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a3", list[0].ID)
}

func TestVectorStoreReplaceAndFetch(t *testing.T) {
	store := newTestStore(t)
	vectors := store.VectorStore()
	ctx := context.Background()

	n, err := vectors.ReplaceDocument(ctx, "p1", "doc1",
		[]string{"chunk zero", "chunk one"},
		[][]float32{{0.1, 0.2}, {0.3, 0.4}},
		map[string]any{"overlap": 100})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := vectors.FetchAll(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "doc1::0", records[0].ChunkID)
	assert.Equal(t, "doc1::1", records[1].ChunkID)
	assert.Equal(t, []float32{0.3, 0.4}, records[1].Vector)
	assert.Equal(t, float64(1), records[1].Metadata["chunkIndex"])
	assert.Equal(t, float64(100), records[1].Metadata["overlap"])
}

func TestVectorStoreReplaceMismatch(t *testing.T) {
	store := newTestStore(t)

	_, err := store.VectorStore().ReplaceDocument(context.Background(), "p1", "doc1",
		[]string{"a", "b"}, [][]float32{{0.1}}, nil)
	assert.ErrorIs(t, err, domain.ErrChunkVectorMismatch)
}

func TestVectorStoreReplaceIsFullSwap(t *testing.T) {
	store := newTestStore(t)
	vectors := store.VectorStore()
	ctx := context.Background()

	_, err := vectors.ReplaceDocument(ctx, "p1", "doc1",
		[]string{"a", "b", "c"}, [][]float32{{1}, {2}, {3}}, nil)
	require.NoError(t, err)

	// Re-index with fewer chunks: no stale records survive.
	_, err = vectors.ReplaceDocument(ctx, "p1", "doc1",
		[]string{"x"}, [][]float32{{9}}, nil)
	require.NoError(t, err)

	records, err := vectors.FetchAll(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "x", records[0].Text)
}

func TestVectorStorePatientScoping(t *testing.T) {
	store := newTestStore(t)
	vectors := store.VectorStore()
	ctx := context.Background()

	_, err := vectors.ReplaceDocument(ctx, "p1", "doc1", []string{"mine"}, [][]float32{{1}}, nil)
	require.NoError(t, err)
	_, err = vectors.ReplaceDocument(ctx, "p2", "doc2", []string{"theirs"}, [][]float32{{2}}, nil)
	require.NoError(t, err)

	records, err := vectors.FetchAll(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "mine", records[0].Text)
}

func TestVectorStoreDeleteDocument(t *testing.T) {
	store := newTestStore(t)
	vectors := store.VectorStore()
	ctx := context.Background()

	_, err := vectors.ReplaceDocument(ctx, "p1", "doc1", []string{"a", "b"}, [][]float32{{1}, {2}}, nil)
	require.NoError(t, err)

	n, err := vectors.DeleteDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Absent documents are a no-op, not an error.
	n, err = vectors.DeleteDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFloat32BytesRoundtrip(t *testing.T) {
	in := []float32{0.5, -1.25, 3.75, 0}
	out := bytesToFloat32Slice(float32SliceToBytes(in))
	assert.Equal(t, in, out)

	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
