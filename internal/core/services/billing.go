package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driven"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driving"
	"github.com/mediflow-labs/mediflow/internal/logger"
)

// Discount rule rates.
const (
	bulkDiscountRate    = 0.05
	seniorDiscountRate  = 0.10
	chronicDiscountRate = 0.07
	generalDiscountRate = 0.03

	bulkTreatmentThreshold = 5
	seniorAgeThreshold     = 65
)

// chronicConditions qualify a patient for the chronic-condition discount.
// Matching is case-insensitive substring: "Type 2 Diabetes" qualifies.
var chronicConditions = []string{"diabetes", "hypertension", "asthma", "heart disease"}

// Ensure BillingService implements the interface.
var _ driving.BillingOptimizer = (*BillingService)(nil)

// BillingService applies the discount rules and LLM-assisted treatment cost
// optimisation.
type BillingService struct {
	llm      driven.LLMService
	invoices driven.InvoiceStore
}

// NewBillingService creates a billing service.
func NewBillingService(llm driven.LLMService, invoices driven.InvoiceStore) *BillingService {
	return &BillingService{llm: llm, invoices: invoices}
}

// ApplyDiscounts evaluates the discount rules against a subtotal. The rules
// are cumulative and the final total never goes below zero.
func (s *BillingService) ApplyDiscounts(subtotal float64, bctx domain.BillingContext) (float64, []domain.Discount) {
	var discounts []domain.Discount
	total := subtotal

	if bctx.TreatmentCount >= bulkTreatmentThreshold {
		amount := subtotal * bulkDiscountRate
		total -= amount
		discounts = append(discounts, domain.Discount{
			Type:        "bulk_discount",
			Amount:      amount,
			Description: "5% bulk treatment discount",
		})
	}

	if bctx.PatientAge >= seniorAgeThreshold {
		amount := subtotal * seniorDiscountRate
		total -= amount
		discounts = append(discounts, domain.Discount{
			Type:        "senior_discount",
			Amount:      amount,
			Description: "10% senior citizen discount",
		})
	}

	if hasChronicCondition(bctx.PatientConditions) {
		amount := subtotal * chronicDiscountRate
		total -= amount
		discounts = append(discounts, domain.Discount{
			Type:        "chronic_condition_discount",
			Amount:      amount,
			Description: "7% chronic condition management discount",
		})
	}

	amount := subtotal * generalDiscountRate
	total -= amount
	discounts = append(discounts, domain.Discount{
		Type:        "general_discount",
		Amount:      amount,
		Description: "3% hospital discount",
	})

	if total < 0 {
		total = 0
	}
	logger.Debug("billing: applied %d discount rules, %.2f -> %.2f", len(discounts), subtotal, total)
	return total, discounts
}

// Optimize selects the most cost-effective option per treatment. Protected
// or alternative-less treatments are kept as-is; for the rest the LLM picks
// among original and alternatives, with cheapest-option selection as the
// fallback when the model call or its output decoding fails.
func (s *BillingService) Optimize(ctx context.Context, treatments []domain.Treatment, conditions []string, constraints domain.BillingConstraints) ([]domain.OptimizedTreatment, error) {
	optimized := make([]domain.OptimizedTreatment, 0, len(treatments))

	for _, treatment := range treatments {
		category := treatment.Category
		if category == "" {
			category = "general"
		}
		kept := domain.OptimizedTreatment{
			ItemID:       treatment.ItemID,
			OriginalName: treatment.Name,
			OriginalCost: treatment.Cost,
			SelectedName: treatment.Name,
			SelectedCost: treatment.Cost,
			Category:     category,
		}

		switch {
		case contains(constraints.DoNotReplace, treatment.ItemID):
			kept.Reasoning = "Protected by constraint - no replacement allowed"
		case len(treatment.Alternatives) == 0:
			kept.Reasoning = "No alternatives available"
		default:
			selected := s.selectBestOption(ctx, treatment, conditions)
			kept.SelectedName = selected.Name
			kept.SelectedCost = selected.Cost
			kept.AlternativesConsidered = len(treatment.Alternatives)
			kept.Reasoning = selected.Reasoning
			if saved := kept.Saved(); saved > 0 {
				logger.Info("billing: %s -> %s (saved $%.2f)", treatment.Name, selected.Name, saved)
			}
		}

		optimized = append(optimized, kept)
	}

	return optimized, nil
}

// Process runs one billing job: optimise treatments, apply discounts and
// persist the invoice.
func (s *BillingService) Process(ctx context.Context, job domain.BillingJob) error {
	start := time.Now()

	optimized, err := s.Optimize(ctx, job.Treatments, job.Context.PatientConditions, job.Constraints)
	if err != nil {
		return fmt.Errorf("optimising treatments: %w", err)
	}

	var subtotal float64
	for _, t := range optimized {
		subtotal += t.SelectedCost
	}

	bctx := job.Context
	if bctx.TreatmentCount == 0 {
		bctx.TreatmentCount = len(job.Treatments)
	}
	total, discounts := s.ApplyDiscounts(subtotal, bctx)

	invoice := &domain.Invoice{
		ID:         job.InvoiceID,
		PatientID:  job.PatientID,
		Subtotal:   subtotal,
		Total:      total,
		Discounts:  discounts,
		Treatments: optimized,
	}
	if err := s.invoices.Save(ctx, invoice); err != nil {
		return fmt.Errorf("saving invoice: %w", err)
	}

	logger.Info("billing: invoice %s for patient %s: subtotal $%.2f, total $%.2f (%s)", invoice.ID, job.PatientID, subtotal, total, time.Since(start))
	return nil
}

// optionSelection is the JSON contract the optimiser asks the LLM for.
type optionSelection struct {
	Name      string  `json:"name"`
	Cost      float64 `json:"cost"`
	Reasoning string  `json:"reasoning"`
}

// selectBestOption asks the LLM to choose among the original treatment and
// its alternatives. Any failure selects the cheapest option instead.
func (s *BillingService) selectBestOption(ctx context.Context, treatment domain.Treatment, conditions []string) optionSelection {
	conditionList := "None specified"
	if len(conditions) > 0 {
		conditionList = strings.Join(conditions, ", ")
	}

	system := fmt.Sprintf(`You are a medical billing optimization AI. Select the most cost-effective treatment option while maintaining safety and efficacy.

Patient conditions: %s

Consider:
1. Cost savings (prefer lower cost)
2. Patient safety (ensure compatibility with conditions)
3. Treatment efficacy (maintain quality of care)

Return ONLY valid JSON:
{
  "name": "selected treatment name",
  "cost": number,
  "reasoning": "brief explanation (max 100 chars)"
}`, conditionList)

	var alternatives strings.Builder
	for _, alt := range treatment.Alternatives {
		fmt.Fprintf(&alternatives, "- %s - $%.2f\n", alt.Name, alt.Cost)
	}
	user := fmt.Sprintf("Original: %s - $%.2f\n\nAlternatives:\n%s\nSelect the best option:", treatment.Name, treatment.Cost, alternatives.String())

	response, err := s.llm.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: system},
		{Role: driven.RoleUser, Content: user},
	})
	if err != nil {
		logger.Warn("billing: optimiser call failed for %s, selecting cheapest: %v", treatment.Name, err)
		return cheapestOption(treatment)
	}

	var selected optionSelection
	if err := json.Unmarshal([]byte(StripCodeFences(response)), &selected); err != nil || selected.Name == "" {
		logger.Warn("billing: undecodable optimiser output for %s, selecting cheapest", treatment.Name)
		return cheapestOption(treatment)
	}
	if selected.Reasoning == "" {
		selected.Reasoning = "AI-selected best option"
	}
	return selected
}

// cheapestOption picks the lowest-cost choice among the original and its
// alternatives. This is the documented fallback, not an afterthought: model
// output is free text and regularly undecodable.
func cheapestOption(treatment domain.Treatment) optionSelection {
	best := optionSelection{
		Name:      treatment.Name,
		Cost:      treatment.Cost,
		Reasoning: "Selected cheapest option (AI unavailable)",
	}
	for _, alt := range treatment.Alternatives {
		if alt.Cost < best.Cost {
			best.Name = alt.Name
			best.Cost = alt.Cost
		}
	}
	return best
}

// hasChronicCondition reports whether any patient condition matches the
// chronic list.
func hasChronicCondition(conditions []string) bool {
	for _, condition := range conditions {
		lower := strings.ToLower(condition)
		for _, chronic := range chronicConditions {
			if strings.Contains(lower, chronic) {
				return true
			}
		}
	}
	return false
}

// contains reports whether list holds value.
func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
