package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/akolanti/LegalRAG/internal/rag/ingest"
	"github.com/spf13/cobra"
)

func (r *runner) ingestCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ingest [dir]",
		Short: "Index every PDF in a directory",
		Long: `Extracts, chunks and embeds each PDF directly under dir and stores the
chunks in the configured collection. dir defaults to DATA_DIR.

A file that fails is reported and skipped, the rest are still ingested.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := r.settings.DataDir
			if len(args) == 1 {
				dir = args[0]
			}
			a, err := r.services(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Ingest.Run(cmd.Context(), dir)
			if err != nil {
				return fmt.Errorf("ingesting %s: %w", dir, err)
			}
			if asJSON {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal report: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			printReport(cmd.OutOrStdout(), dir, report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the report as JSON")
	return cmd
}

func printReport(w io.Writer, dir string, report ingest.Report) {
	fmt.Fprintf(w, "Ingested %s\n", dir)
	fmt.Fprintf(w, "  files processed: %d\n", report.FilesProcessed)
	fmt.Fprintf(w, "  files failed:    %d\n", report.FilesFailed)
	fmt.Fprintf(w, "  chunks stored:   %d\n", report.ChunksProcessed)
	if report.ChunksDropped > 0 {
		fmt.Fprintf(w, "  chunks dropped:  %d (%d batches)\n", report.ChunksDropped, report.BatchesDropped)
	}
	for _, f := range report.Files {
		if f.Failed {
			fmt.Fprintf(w, "  failed: %s: %s\n", f.Name, f.Error)
		}
	}
	if report.Partial() {
		fmt.Fprintln(w, "Ingestion was partial.")
	}
}
