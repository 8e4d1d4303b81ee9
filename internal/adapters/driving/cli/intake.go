package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
)

var (
	intakeName string
	intakeAge  int
	intakeFile string
)

var intakeCmd = &cobra.Command{
	Use:   "intake [patient-id]",
	Short: "Process a patient document through the intake agent",
	Long: `Extracts structured medical data from a raw document, updates the
patient record and indexes the document for retrieval. The document text
is read from --file or from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runIntake,
}

func init() {
	intakeCmd.Flags().StringVar(&intakeName, "name", "", "patient name (registers the patient if new)")
	intakeCmd.Flags().IntVar(&intakeAge, "age", 0, "patient age")
	intakeCmd.Flags().StringVarP(&intakeFile, "file", "f", "", "document file to ingest (default: stdin)")
	rootCmd.AddCommand(intakeCmd)
}

func runIntake(cmd *cobra.Command, args []string) error {
	patientID := args[0]

	text, err := readDocument(intakeFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Register the patient on first contact.
	if intakeName != "" {
		if _, err := a.store.PatientStore().Get(ctx, patientID); err != nil {
			patient := &domain.Patient{ID: patientID, Name: intakeName, Age: intakeAge}
			if err := a.store.PatientStore().Save(ctx, patient); err != nil {
				return fmt.Errorf("registering patient: %w", err)
			}
			cmd.Printf("Registered patient %s (%s)\n", patientID, intakeName)
		}
	}

	job := domain.IntakeJob{
		PatientID: patientID,
		Name:      intakeName,
		Age:       intakeAge,
		RawText:   text,
	}
	if err := a.intake.Process(ctx, job); err != nil {
		return fmt.Errorf("intake failed: %w", err)
	}

	// Intake queues an indexing job; run it now so the document is
	// searchable when the command returns.
	if err := a.drain(ctx, domain.QueueRAG, a.handlers.HandleIndex); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	patient, err := a.store.PatientStore().Get(ctx, patientID)
	if err != nil {
		return err
	}

	cmd.Printf("Intake complete for %s.\n", patientID)
	if patient.Summary != "" {
		cmd.Printf("Summary: %s\n", patient.Summary)
	}
	printHistoryList(cmd, "Conditions", patient.History.Conditions)
	printHistoryList(cmd, "Medications", patient.History.Medications)
	printHistoryList(cmd, "Allergies", patient.History.Allergies)
	return nil
}

// readDocument reads the intake text from a file or stdin.
func readDocument(path string) (string, error) {
	var data []byte
	var err error
	if path == "" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("document is empty")
	}
	return text, nil
}

func printHistoryList(cmd *cobra.Command, label string, items []string) {
	if len(items) == 0 {
		return
	}
	cmd.Printf("%s: %s\n", label, strings.Join(items, ", "))
}
