package domain

import "time"

// Treatment is one line item on an invoice, optionally carrying cheaper
// alternatives the optimiser may substitute.
type Treatment struct {
	ItemID       string
	Name         string
	Cost         float64
	Category     string
	Alternatives []TreatmentOption
}

// TreatmentOption is a candidate replacement for a treatment.
type TreatmentOption struct {
	Name string  `json:"name"`
	Cost float64 `json:"cost"`
}

// BillingContext carries the patient facts the discount rules evaluate.
type BillingContext struct {
	TreatmentCount    int
	PatientAge        int
	PatientConditions []string
}

// BillingConstraints restricts what the optimiser may change.
type BillingConstraints struct {
	// DoNotReplace lists treatment item ids that must be kept as-is.
	DoNotReplace []string
}

// Discount is one applied discount rule.
type Discount struct {
	Type        string
	Amount      float64
	Description string
}

// OptimizedTreatment records the optimiser's decision for one treatment.
type OptimizedTreatment struct {
	ItemID                 string
	OriginalName           string
	OriginalCost           float64
	SelectedName           string
	SelectedCost           float64
	AlternativesConsidered int
	Reasoning              string
	Category               string
}

// Saved returns how much the optimiser saved on this line item.
func (t OptimizedTreatment) Saved() float64 {
	return t.OriginalCost - t.SelectedCost
}

// Invoice is the persisted outcome of a billing job.
type Invoice struct {
	ID         string
	PatientID  string
	Subtotal   float64
	Total      float64
	Discounts  []Discount
	Treatments []OptimizedTreatment
	CreatedAt  time.Time
}
