package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/akolanti/LegalRAG/internal/rag/answer"
	"github.com/spf13/cobra"
)

func (r *runner) askCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a legal question from the indexed documents",
		Long: `Retrieves the passages most relevant to the question and summarizes them
into a brief explanation, a step-wise breakdown and the legal references used.

Progress is printed as each stage finishes.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return errors.New("question must not be blank")
			}
			a, err := r.services(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			progress := func(percent int, stage string) {
				if !asJSON {
					cmd.PrintErrf("[%3d%%] %s\n", percent, stage)
				}
			}
			result := a.Answer.Answer(cmd.Context(), question, progress)
			if asJSON {
				return printAnswerJSON(cmd, question, result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.Markdown())
			if sources := result.SourceList(); len(sources) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Sources:")
				for _, s := range sources {
					fmt.Fprintf(out, "  - %s\n", s)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the answer as JSON")
	return cmd
}

func printAnswerJSON(cmd *cobra.Command, question string, result answer.Answer) error {
	data, err := json.MarshalIndent(struct {
		Question string   `json:"question"`
		Kind     string   `json:"answer_kind"`
		Answer   string   `json:"answer"`
		Sources  []string `json:"sources"`
	}{question, string(result.Kind), result.Markdown(), result.SourceList()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
