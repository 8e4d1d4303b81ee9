package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
)

func TestPatientStore(t *testing.T) {
	ctx := context.Background()
	s := NewPatientStore()

	t.Run("get missing patient", func(t *testing.T) {
		_, err := s.Get(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("save and get", func(t *testing.T) {
		err := s.Save(ctx, &domain.Patient{ID: "p1", Name: "Ada Osei", Age: 67})
		require.NoError(t, err)

		got, err := s.Get(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "Ada Osei", got.Name)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("update history", func(t *testing.T) {
		history := domain.MedicalHistory{
			Conditions: []string{"type 2 diabetes"},
			Vitals:     map[string]any{"bloodPressure": "130/85"},
		}
		err := s.UpdateHistory(ctx, "p1", "Stable diabetic patient.", history)
		require.NoError(t, err)

		got, err := s.Get(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "Stable diabetic patient.", got.Summary)
		assert.Equal(t, []string{"type 2 diabetes"}, got.History.Conditions)

		err = s.UpdateHistory(ctx, "ghost", "", domain.MedicalHistory{})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestDiagnosticStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewDiagnosticStore()

	d := &domain.Diagnostic{ID: "d1", PatientID: "p1", Question: "BP trend?"}
	require.NoError(t, s.Create(ctx, d))
	assert.Equal(t, domain.DiagnosticPending, d.Status)

	assert.ErrorIs(t, s.Create(ctx, &domain.Diagnostic{ID: "d1"}), domain.ErrAlreadyExists)

	require.NoError(t, s.MarkProcessing(ctx, "d1"))

	chunks := []domain.RetrievedChunk{{ChunkID: "doc1::0", Text: "BP 120/80", Similarity: 0.8}}
	require.NoError(t, s.Complete(ctx, "d1", "Pressure is normal.", chunks, 80, 1500*time.Millisecond))

	got, err := s.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, domain.DiagnosticCompleted, got.Status)
	assert.Equal(t, 80, got.Confidence)
	assert.Len(t, got.RetrievedChunks, 1)
	assert.True(t, got.Terminal())

	// Terminal records cannot re-enter processing.
	assert.Error(t, s.MarkProcessing(ctx, "d1"))

	t.Run("fail path", func(t *testing.T) {
		require.NoError(t, s.Create(ctx, &domain.Diagnostic{ID: "d2", PatientID: "p1"}))
		require.NoError(t, s.Fail(ctx, "d2", "model timeout"))

		got, err := s.Get(ctx, "d2")
		require.NoError(t, err)
		assert.Equal(t, domain.DiagnosticError, got.Status)
		assert.Equal(t, "model timeout", got.ErrorMessage)
	})

	t.Run("list by patient newest first", func(t *testing.T) {
		list, err := s.ListByPatient(ctx, "p1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.False(t, list[0].CreatedAt.Before(list[1].CreatedAt))
	})
}

func TestAuditStoreQueries(t *testing.T) {
	ctx := context.Background()
	s := NewAuditStore()
	now := time.Now().UTC()

	for i, action := range []string{"read", "login_failed", "login_failed", "read"} {
		err := s.Append(ctx, &domain.AuditEvent{
			ID:           string(rune('a' + i)),
			Actor:        "dr-lee",
			Action:       action,
			ResourceType: "patient",
			Timestamp:    now.Add(-time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	require.NoError(t, s.Append(ctx, &domain.AuditEvent{Actor: "other", Action: "read", Timestamp: now}))

	count, err := s.CountByActorAction(ctx, "dr-lee", "login_failed", now.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	events, err := s.EventsByActor(ctx, "dr-lee", now.Add(-90*time.Second))
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestAlertStoreList(t *testing.T) {
	ctx := context.Background()
	s := NewAlertStore()

	for i := 0; i < 3; i++ {
		err := s.Save(ctx, &domain.SecurityAlert{
			ID:        string(rune('a' + i)),
			Type:      "odd_hour_access",
			Severity:  domain.SeverityMedium,
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	alerts, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "c", alerts[0].ID)
}
