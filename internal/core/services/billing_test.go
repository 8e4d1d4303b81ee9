package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediflow-labs/mediflow/internal/adapters/driven/storage/memory"
	"github.com/mediflow-labs/mediflow/internal/core/domain"
)

func TestBillingServiceApplyDiscounts(t *testing.T) {
	svc := NewBillingService(&mockLLM{}, memory.NewInvoiceStore())

	tests := []struct {
		name          string
		subtotal      float64
		bctx          domain.BillingContext
		wantTotal     float64
		wantDiscounts []string
	}{
		{
			name:          "general discount always applies",
			subtotal:      100,
			bctx:          domain.BillingContext{},
			wantTotal:     97,
			wantDiscounts: []string{"general_discount"},
		},
		{
			name:          "bulk discount at five treatments",
			subtotal:      1000,
			bctx:          domain.BillingContext{TreatmentCount: 5},
			wantTotal:     920,
			wantDiscounts: []string{"bulk_discount", "general_discount"},
		},
		{
			name:          "senior discount at sixty five",
			subtotal:      200,
			bctx:          domain.BillingContext{PatientAge: 65},
			wantTotal:     174,
			wantDiscounts: []string{"senior_discount", "general_discount"},
		},
		{
			name:     "chronic condition matches case-insensitive substring",
			subtotal: 100,
			bctx: domain.BillingContext{
				PatientConditions: []string{"Type 2 Diabetes Mellitus"},
			},
			wantTotal:     90,
			wantDiscounts: []string{"chronic_condition_discount", "general_discount"},
		},
		{
			name:     "all rules stack",
			subtotal: 1000,
			bctx: domain.BillingContext{
				TreatmentCount:    6,
				PatientAge:        70,
				PatientConditions: []string{"asthma"},
			},
			wantTotal:     750,
			wantDiscounts: []string{"bulk_discount", "senior_discount", "chronic_condition_discount", "general_discount"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, discounts := svc.ApplyDiscounts(tt.subtotal, tt.bctx)
			assert.InDelta(t, tt.wantTotal, total, 1e-9)

			types := make([]string, len(discounts))
			for i, d := range discounts {
				types[i] = d.Type
			}
			assert.Equal(t, tt.wantDiscounts, types)
		})
	}

	t.Run("total never negative", func(t *testing.T) {
		total, _ := svc.ApplyDiscounts(0, domain.BillingContext{})
		assert.GreaterOrEqual(t, total, 0.0)
	})
}

func TestBillingServiceOptimize(t *testing.T) {
	ctx := context.Background()

	treatment := domain.Treatment{
		ItemID: "t1",
		Name:   "Brand statin",
		Cost:   120,
		Alternatives: []domain.TreatmentOption{
			{Name: "Generic statin", Cost: 35},
			{Name: "Mid-tier statin", Cost: 60},
		},
	}

	t.Run("protected treatment is never replaced", func(t *testing.T) {
		llm := &mockLLM{response: `{"name":"Generic statin","cost":35,"reasoning":"same efficacy"}`}
		svc := NewBillingService(llm, memory.NewInvoiceStore())

		got, err := svc.Optimize(ctx, []domain.Treatment{treatment}, nil,
			domain.BillingConstraints{DoNotReplace: []string{"t1"}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Brand statin", got[0].SelectedName)
		assert.Zero(t, got[0].AlternativesConsidered)
		assert.Zero(t, llm.calls)
	})

	t.Run("no alternatives keeps original", func(t *testing.T) {
		svc := NewBillingService(&mockLLM{}, memory.NewInvoiceStore())
		got, err := svc.Optimize(ctx, []domain.Treatment{{ItemID: "t2", Name: "X-ray", Cost: 80}}, nil, domain.BillingConstraints{})
		require.NoError(t, err)
		assert.Equal(t, "No alternatives available", got[0].Reasoning)
	})

	t.Run("LLM selection is honoured", func(t *testing.T) {
		llm := &mockLLM{response: "```json\n{\"name\":\"Generic statin\",\"cost\":35,\"reasoning\":\"same efficacy\"}\n```"}
		svc := NewBillingService(llm, memory.NewInvoiceStore())

		got, err := svc.Optimize(ctx, []domain.Treatment{treatment}, []string{"hypertension"}, domain.BillingConstraints{})
		require.NoError(t, err)
		assert.Equal(t, "Generic statin", got[0].SelectedName)
		assert.Equal(t, 35.0, got[0].SelectedCost)
		assert.Equal(t, 2, got[0].AlternativesConsidered)
		assert.Equal(t, 85.0, got[0].Saved())
	})

	t.Run("LLM failure selects cheapest", func(t *testing.T) {
		llm := &mockLLM{err: errors.New("quota exceeded")}
		svc := NewBillingService(llm, memory.NewInvoiceStore())

		got, err := svc.Optimize(ctx, []domain.Treatment{treatment}, nil, domain.BillingConstraints{})
		require.NoError(t, err)
		assert.Equal(t, "Generic statin", got[0].SelectedName)
		assert.Equal(t, 35.0, got[0].SelectedCost)
		assert.Contains(t, got[0].Reasoning, "cheapest")
	})

	t.Run("undecodable output selects cheapest", func(t *testing.T) {
		llm := &mockLLM{response: "the generic is probably fine"}
		svc := NewBillingService(llm, memory.NewInvoiceStore())

		got, err := svc.Optimize(ctx, []domain.Treatment{treatment}, nil, domain.BillingConstraints{})
		require.NoError(t, err)
		assert.Equal(t, "Generic statin", got[0].SelectedName)
	})
}

func TestBillingServiceProcess(t *testing.T) {
	ctx := context.Background()
	invoices := memory.NewInvoiceStore()
	llm := &mockLLM{response: `{"name":"Generic statin","cost":35,"reasoning":"same efficacy"}`}
	svc := NewBillingService(llm, invoices)

	job := domain.BillingJob{
		InvoiceID: "inv1",
		PatientID: "p1",
		Treatments: []domain.Treatment{
			{ItemID: "t1", Name: "Brand statin", Cost: 120, Alternatives: []domain.TreatmentOption{{Name: "Generic statin", Cost: 35}}},
			{ItemID: "t2", Name: "Consultation", Cost: 65},
		},
		Context: domain.BillingContext{PatientAge: 70},
	}

	require.NoError(t, svc.Process(ctx, job))

	inv, err := invoices.Get(ctx, "inv1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, inv.Subtotal)
	// 10% senior + 3% general off the optimised subtotal.
	assert.InDelta(t, 87.0, inv.Total, 1e-9)
	assert.Len(t, inv.Treatments, 2)
	assert.Len(t, inv.Discounts, 2)
}
