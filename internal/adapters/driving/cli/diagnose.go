package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
)

var diagnoseJSON bool

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose [patient-id] [question]",
	Short: "Ask a diagnostic question grounded in a patient's records",
	Long: `Retrieves the most relevant chunks from the patient's indexed
documents and generates an answer. The exchange is stored in the
patient's diagnostic history with a retrieval confidence score.`,
	Args: cobra.ExactArgs(2),
	RunE: runDiagnose,
}

func init() {
	diagnoseCmd.Flags().BoolVar(&diagnoseJSON, "json", false, "output the full record as JSON")
	rootCmd.AddCommand(diagnoseCmd)
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	patientID, question := args[0], args[1]

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	record := &domain.Diagnostic{
		ID:        uuid.New().String(),
		PatientID: patientID,
		Question:  question,
	}
	if err := a.store.DiagnosticStore().Create(ctx, record); err != nil {
		return fmt.Errorf("creating diagnostic record: %w", err)
	}

	if err := a.diag.Process(ctx, domain.DiagnosticJob{
		DiagnosticID: record.ID,
		PatientID:    patientID,
		Question:     question,
	}); err != nil {
		return fmt.Errorf("diagnostic failed: %w", err)
	}

	result, err := a.store.DiagnosticStore().Get(ctx, record.ID)
	if err != nil {
		return err
	}

	if diagnoseJSON {
		return printJSON(cmd, result)
	}

	cmd.Println(result.Response)
	cmd.Println()
	cmd.Printf("Confidence: %d%%  Sources: %d chunk(s)  Time: %s\n",
		result.Confidence, len(result.RetrievedChunks), result.ProcessingTime)
	return nil
}
