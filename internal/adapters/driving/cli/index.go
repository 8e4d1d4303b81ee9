package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
)

var indexFile string

var indexCmd = &cobra.Command{
	Use:   "index [patient-id] [doc-id]",
	Short: "Index a document for retrieval",
	Long: `Chunks and embeds a document's text and stores the vectors for
similarity search. Re-indexing the same document id replaces its
previous chunks. The text is read from --file or from stdin.`,
	Args: cobra.ExactArgs(2),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexFile, "file", "f", "", "document file to index (default: stdin)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	patientID, docID := args[0], args[1]

	text, err := readDocument(indexFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.indexer.Index(ctx, domain.IndexJob{
		PatientID:  patientID,
		DocumentID: docID,
		Text:       text,
	})
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	cmd.Printf("Indexed %d chunk(s) for document %s.\n", report.ChunksIndexed, docID)
	if report.Degraded > 0 {
		cmd.Printf("Warning: %d chunk(s) stored with zero vectors after embedding failures.\n", report.Degraded)
	}
	return nil
}
