package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driven"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driving"
	"github.com/mediflow-labs/mediflow/internal/logger"
)

// intakeSystemPrompt asks the model for strictly shaped JSON. The response
// is still decoded defensively: models return fenced or malformed output
// often enough that the fallback path is first-class behaviour.
const intakeSystemPrompt = `You are a medical data extraction specialist. Extract structured information from patient documents.

Return ONLY valid JSON with this exact structure:
{
  "summary": "Brief 2-3 sentence clinical summary",
  "allergies": ["allergy1", "allergy2"],
  "medications": ["medication1", "medication2"],
  "conditions": ["condition1", "condition2"],
  "vitals": {
    "bloodPressure": "120/80",
    "temperature": "98.6F",
    "heartRate": 72,
    "respiratoryRate": 16
  },
  "chiefComplaint": "Primary reason for visit",
  "diagnosisNotes": "Clinical observations"
}

If information is not present, use empty arrays or empty strings. Do not include null values.`

// summaryFallbackLength bounds the truncated-summary fallback.
const summaryFallbackLength = 200

// Ensure IntakeService implements the interface.
var _ driving.IntakeProcessor = (*IntakeService)(nil)

// IntakeService extracts structured medical data from raw patient documents
// and hands the document to the indexing pipeline.
type IntakeService struct {
	llm       driven.LLMService
	patients  driven.PatientStore
	documents driven.DocumentStore
	queue     driven.JobQueue
}

// NewIntakeService creates an intake service.
func NewIntakeService(llm driven.LLMService, patients driven.PatientStore, documents driven.DocumentStore, queue driven.JobQueue) *IntakeService {
	return &IntakeService{
		llm:       llm,
		patients:  patients,
		documents: documents,
		queue:     queue,
	}
}

// Process runs one intake job: verify the patient, extract structured data,
// update the patient record, store the document and enqueue indexing.
func (s *IntakeService) Process(ctx context.Context, job domain.IntakeJob) error {
	start := time.Now()

	patient, err := s.patients.Get(ctx, job.PatientID)
	if err != nil {
		return fmt.Errorf("verifying patient %s: %w", job.PatientID, err)
	}
	logger.Info("intake: patient verified: %s (%s)", patient.Name, patient.ID)

	text := strings.TrimSpace(job.RawText)
	if text == "" {
		logger.Info("intake: no document text for patient %s, nothing to do", job.PatientID)
		return nil
	}

	extraction := s.Extract(ctx, text)

	history := domain.MedicalHistory{
		Allergies:   extraction.Allergies,
		Medications: extraction.Medications,
		Conditions:  extraction.Conditions,
		Vitals:      extraction.Vitals,
	}
	if err := s.patients.UpdateHistory(ctx, job.PatientID, extraction.Summary, history); err != nil {
		return fmt.Errorf("updating patient history: %w", err)
	}

	doc := &domain.MedicalDocument{
		ID:        uuid.New().String(),
		PatientID: job.PatientID,
		Title:     extraction.ChiefComplaint,
		Text:      text,
		Metadata:  documentMetadata(text, extraction, job.Metadata),
	}
	if err := s.documents.Save(ctx, doc); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	if _, err := s.queue.Enqueue(ctx, domain.QueueRAG, domain.IndexJob{
		PatientID:  job.PatientID,
		DocumentID: doc.ID,
		Text:       text,
		Metadata:   doc.Metadata,
	}); err != nil {
		return fmt.Errorf("queueing index job: %w", err)
	}

	logger.Info("intake: patient %s processed in %s, indexing queued for doc %s", job.PatientID, time.Since(start), doc.ID)
	return nil
}

// Extract asks the LLM for structured medical data. The decode is
// best-effort: fenced output is unwrapped and any decode failure falls back
// to a truncated-summary extraction rather than erroring the job.
func (s *IntakeService) Extract(ctx context.Context, text string) domain.MedicalExtraction {
	messages := []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: intakeSystemPrompt},
		{Role: driven.RoleUser, Content: "Extract medical data from this document:\n\n" + text},
	}

	response, err := s.llm.Chat(ctx, messages)
	if err != nil {
		logger.Warn("intake: extraction call failed, using fallback summary: %v", err)
		return fallbackExtraction(text)
	}

	var extraction domain.MedicalExtraction
	if err := json.Unmarshal([]byte(StripCodeFences(response)), &extraction); err != nil {
		logger.Warn("intake: extraction returned undecodable output, using fallback summary: %v", err)
		return fallbackExtraction(text)
	}

	normaliseExtraction(&extraction)
	return extraction
}

// fallbackExtraction is the degraded result when the model output cannot be
// used: the document head as summary, everything else empty.
func fallbackExtraction(text string) domain.MedicalExtraction {
	summary := text
	if len(summary) > summaryFallbackLength {
		summary = summary[:summaryFallbackLength] + "..."
	}
	return domain.MedicalExtraction{
		Summary:     summary,
		Allergies:   []string{},
		Medications: []string{},
		Conditions:  []string{},
		Vitals:      map[string]any{},
	}
}

// normaliseExtraction replaces nil collections so downstream code never
// branches on null.
func normaliseExtraction(e *domain.MedicalExtraction) {
	if e.Summary == "" {
		e.Summary = "No summary available"
	}
	if e.Allergies == nil {
		e.Allergies = []string{}
	}
	if e.Medications == nil {
		e.Medications = []string{}
	}
	if e.Conditions == nil {
		e.Conditions = []string{}
	}
	if e.Vitals == nil {
		e.Vitals = map[string]any{}
	}
}

// documentMetadata derives the stored document metadata from the text and
// extraction, merged over any caller-supplied metadata.
func documentMetadata(text string, extraction domain.MedicalExtraction, extra map[string]any) map[string]any {
	meta := map[string]any{
		"wordCount":      len(strings.Fields(text)),
		"characterCount": len(text),
		"extractedEntities": map[string]any{
			"allergyCount":    len(extraction.Allergies),
			"medicationCount": len(extraction.Medications),
			"conditionCount":  len(extraction.Conditions),
		},
		"hasVitals": len(extraction.Vitals) > 0,
	}
	for k, v := range extra {
		meta[k] = v
	}
	return meta
}

// StripCodeFences removes Markdown code-fence markers from LLM output so
// fenced JSON can be decoded. Content outside the fences is kept: the
// decode that follows decides whether the result is usable.
func StripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
