package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
)

var billingFile string

var billingCmd = &cobra.Command{
	Use:   "billing",
	Short: "Billing optimisation and invoices",
}

var billingOptimizeCmd = &cobra.Command{
	Use:   "optimize [patient-id]",
	Short: "Optimise treatments and apply discounts for an invoice",
	Long: `Reads a billing request (treatments, patient context, constraints)
from a JSON file, substitutes cheaper treatment options where allowed,
applies the discount rules and stores the resulting invoice.`,
	Args: cobra.ExactArgs(1),
	RunE: runBillingOptimize,
}

var billingShowCmd = &cobra.Command{
	Use:   "show [patient-id]",
	Short: "List a patient's invoices",
	Args:  cobra.ExactArgs(1),
	RunE:  runBillingShow,
}

func init() {
	billingOptimizeCmd.Flags().StringVarP(&billingFile, "file", "f", "", "billing request JSON file (required)")
	billingOptimizeCmd.MarkFlagRequired("file") //nolint:errcheck
	billingCmd.AddCommand(billingOptimizeCmd)
	billingCmd.AddCommand(billingShowCmd)
	rootCmd.AddCommand(billingCmd)
}

// billingRequest is the JSON shape accepted by billing optimize.
type billingRequest struct {
	Treatments  []domain.Treatment        `json:"treatments"`
	Context     domain.BillingContext     `json:"context"`
	Constraints domain.BillingConstraints `json:"constraints"`
}

func runBillingOptimize(cmd *cobra.Command, args []string) error {
	patientID := args[0]

	data, err := os.ReadFile(billingFile)
	if err != nil {
		return fmt.Errorf("reading billing request: %w", err)
	}
	var req billingRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("parsing billing request: %w", err)
	}
	if len(req.Treatments) == 0 {
		return fmt.Errorf("billing request has no treatments")
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	invoiceID := uuid.New().String()
	if err := a.billing.Process(ctx, domain.BillingJob{
		InvoiceID:   invoiceID,
		PatientID:   patientID,
		Treatments:  req.Treatments,
		Context:     req.Context,
		Constraints: req.Constraints,
	}); err != nil {
		return fmt.Errorf("billing failed: %w", err)
	}

	invoice, err := a.store.InvoiceStore().Get(ctx, invoiceID)
	if err != nil {
		return err
	}

	printInvoice(cmd, invoice)
	return nil
}

func runBillingShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	invoices, err := a.store.InvoiceStore().ListByPatient(ctx, args[0])
	if err != nil {
		return err
	}
	if len(invoices) == 0 {
		cmd.Println("No invoices found.")
		return nil
	}

	for i := range invoices {
		printInvoice(cmd, &invoices[i])
		cmd.Println()
	}
	return nil
}

func printInvoice(cmd *cobra.Command, inv *domain.Invoice) {
	cmd.Printf("Invoice %s (patient %s)\n", inv.ID, inv.PatientID)
	for _, t := range inv.Treatments {
		if t.SelectedName != t.OriginalName {
			cmd.Printf("  %-30s %10.2f  (was %s at %.2f, saved %.2f)\n",
				t.SelectedName, t.SelectedCost, t.OriginalName, t.OriginalCost, t.Saved())
			continue
		}
		cmd.Printf("  %-30s %10.2f\n", t.SelectedName, t.SelectedCost)
	}
	cmd.Printf("  %-30s %10.2f\n", "Subtotal", inv.Subtotal)
	for _, d := range inv.Discounts {
		cmd.Printf("  %-30s %10.2f  (%s)\n", "Discount: "+d.Type, -d.Amount, d.Description)
	}
	cmd.Printf("  %-30s %10.2f\n", "Total", inv.Total)
}
