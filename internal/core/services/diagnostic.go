package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driven"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driving"
	"github.com/mediflow-labs/mediflow/internal/logger"
)

// diagnosticSystemPrompt constrains the model to the supplied context.
const diagnosticSystemPrompt = `You are an AI diagnostic assistant helping doctors analyze patient medical records.

Your task:
1. Use ONLY the provided patient context to answer the question
2. Be precise, evidence-based, and clinical in your response
3. If information is insufficient, clearly state what's missing
4. Cite specific details from the context when making recommendations
5. Do not speculate beyond the provided information

Format your response in clear, professional medical language.`

// Ensure DiagnosticService implements the interface.
var _ driving.Diagnostician = (*DiagnosticService)(nil)

// DiagnosticService answers doctors' questions from retrieved context and
// drives diagnostic records through their lifecycle.
type DiagnosticService struct {
	retriever driving.Retriever
	llm       driven.LLMService
	store     driven.DiagnosticStore
	topK      int
}

// NewDiagnosticService creates a diagnostic service. Non-positive topK
// selects DefaultTopK.
func NewDiagnosticService(retriever driving.Retriever, llm driven.LLMService, store driven.DiagnosticStore, topK int) *DiagnosticService {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &DiagnosticService{
		retriever: retriever,
		llm:       llm,
		store:     store,
		topK:      topK,
	}
}

// Answer builds a grounded prompt from non-empty retrieved context, calls
// the LLM and derives the confidence score.
//
// Confidence is round(mean similarity * 100): a retrieval-quality proxy and
// NOT a measure of answer correctness. It says how close the patient's
// records were to the question, nothing about what the model did with them.
func (s *DiagnosticService) Answer(ctx context.Context, question string, chunks []domain.RetrievedChunk) (string, int, error) {
	if len(chunks) == 0 {
		return "", 0, fmt.Errorf("%w: no context supplied", domain.ErrInvalidInput)
	}

	messages := []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: diagnosticSystemPrompt},
		{Role: driven.RoleUser, Content: buildGroundedPrompt(question, chunks)},
	}

	response, err := s.llm.Chat(ctx, messages)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	return strings.TrimSpace(response), ConfidenceScore(chunks), nil
}

// Process runs one diagnostic job end to end. Failures mark the record
// errored and are returned so the queue's retry policy can see them; the
// no-context outcome is a completed record, not an error.
func (s *DiagnosticService) Process(ctx context.Context, job domain.DiagnosticJob) error {
	start := time.Now()
	logger.Info("diagnostic %s: patient=%s question=%q", job.DiagnosticID, job.PatientID, job.Question)

	if err := s.store.MarkProcessing(ctx, job.DiagnosticID); err != nil {
		return fmt.Errorf("marking diagnostic processing: %w", err)
	}

	chunks, err := s.retriever.Retrieve(ctx, job.PatientID, job.Question, s.topK)
	if err != nil {
		return s.fail(ctx, job.DiagnosticID, err)
	}

	if len(chunks) == 0 {
		logger.Info("diagnostic %s: no indexed context for patient %s", job.DiagnosticID, job.PatientID)
		return s.store.Complete(ctx, job.DiagnosticID, domain.NoContextResponse, nil, 0, time.Since(start))
	}

	response, confidence, err := s.Answer(ctx, job.Question, chunks)
	if err != nil {
		return s.fail(ctx, job.DiagnosticID, err)
	}

	elapsed := time.Since(start)
	if err := s.store.Complete(ctx, job.DiagnosticID, response, chunks, confidence, elapsed); err != nil {
		return fmt.Errorf("completing diagnostic: %w", err)
	}

	logger.Info("diagnostic %s: completed in %s (confidence %d%%, %d chunks)", job.DiagnosticID, elapsed, confidence, len(chunks))
	return nil
}

// fail records the error on the diagnostic and returns the original error.
func (s *DiagnosticService) fail(ctx context.Context, id string, cause error) error {
	if err := s.store.Fail(ctx, id, cause.Error()); err != nil {
		logger.Error("diagnostic %s: recording failure: %v", id, err)
	}
	return cause
}

// buildGroundedPrompt concatenates the ranked chunks, each tagged with its
// relevance percentage, followed by the doctor's question.
func buildGroundedPrompt(question string, chunks []domain.RetrievedChunk) string {
	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = fmt.Sprintf("[Chunk %d] (Relevance: %.1f%%)\n%s", i+1, chunk.Similarity*100, chunk.Text)
	}
	context := strings.Join(parts, "\n\n---\n\n")

	return fmt.Sprintf("PATIENT MEDICAL CONTEXT:\n%s\n\n---\n\nDOCTOR'S QUESTION: %s\n\nProvide a detailed, evidence-based diagnostic answer:", context, question)
}

// ConfidenceScore derives the 0-100 confidence value from the mean
// retrieval similarity of the chunks.
func ConfidenceScore(chunks []domain.RetrievedChunk) int {
	if len(chunks) == 0 {
		return 0
	}
	var sum float64
	for _, chunk := range chunks {
		sum += chunk.Similarity
	}
	return int(math.Round(sum / float64(len(chunks)) * 100))
}
