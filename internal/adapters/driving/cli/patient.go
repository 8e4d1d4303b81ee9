package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var patientJSON bool

var patientCmd = &cobra.Command{
	Use:   "patient",
	Short: "Inspect patient records",
}

var patientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered patients",
	RunE:  runPatientList,
}

var patientShowCmd = &cobra.Command{
	Use:   "show [patient-id]",
	Short: "Show a patient's record and diagnostic history",
	Args:  cobra.ExactArgs(1),
	RunE:  runPatientShow,
}

func init() {
	patientShowCmd.Flags().BoolVar(&patientJSON, "json", false, "output as JSON")
	patientCmd.AddCommand(patientListCmd)
	patientCmd.AddCommand(patientShowCmd)
	rootCmd.AddCommand(patientCmd)
}

func runPatientList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	patients, err := a.store.PatientStore().List(ctx)
	if err != nil {
		return err
	}
	if len(patients) == 0 {
		cmd.Println("No patients registered.")
		return nil
	}

	for _, p := range patients {
		cmd.Printf("  %-12s %-24s age %d\n", p.ID, p.Name, p.Age)
	}
	return nil
}

func runPatientShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	patient, err := a.store.PatientStore().Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("loading patient: %w", err)
	}

	if patientJSON {
		return printJSON(cmd, patient)
	}

	cmd.Printf("Patient %s: %s (age %d)\n", patient.ID, patient.Name, patient.Age)
	if patient.Summary != "" {
		cmd.Printf("Summary: %s\n", patient.Summary)
	}
	printHistoryList(cmd, "Conditions", patient.History.Conditions)
	printHistoryList(cmd, "Medications", patient.History.Medications)
	printHistoryList(cmd, "Allergies", patient.History.Allergies)
	if len(patient.History.Vitals) > 0 {
		var parts []string
		for k, v := range patient.History.Vitals {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
		cmd.Printf("Vitals: %s\n", strings.Join(parts, ", "))
	}

	diagnostics, err := a.store.DiagnosticStore().ListByPatient(ctx, patient.ID)
	if err != nil {
		return err
	}
	if len(diagnostics) > 0 {
		cmd.Println()
		cmd.Printf("Diagnostics (%d):\n", len(diagnostics))
		for _, d := range diagnostics {
			cmd.Printf("  [%s] %s (%s, confidence %d%%)\n",
				d.CreatedAt.Format("2006-01-02 15:04"), d.Question, d.Status, d.Confidence)
		}
	}
	return nil
}

// printJSON renders any value as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
