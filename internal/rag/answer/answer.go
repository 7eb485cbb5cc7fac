package answer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/akolanti/LegalRAG/internal/domain/commonModels"
)

type Kind string

const (
	KindStructured Kind = "structured"
	KindRawText    Kind = "raw_text"
)

// Insufficient is what the user sees when nothing usable came back.
const Insufficient = "Insufficient legal information found for this query. Please rephrase your question or add more detail."

type Structured struct {
	BriefExplanation string   `json:"brief_explanation"`
	Steps            []string `json:"steps"`
	LegalReferences  []string `json:"legal_references"`
	Clarification    string   `json:"clarification"`
}

// Answer is either a Structured summary or the model's raw text.
type Answer struct {
	Kind       Kind                        `json:"kind"`
	Structured *Structured                 `json:"structured,omitempty"`
	Text       string                      `json:"text,omitempty"`
	Sources    []commonModels.SearchResult `json:"sources,omitempty"`
}

func rawText(text string) Answer {
	return Answer{Kind: KindRawText, Text: text}
}

// Resolve turns the summarizer output into an Answer. Anything that is not a
// usable JSON object is kept as text, and blank output becomes Insufficient.
func Resolve(output string) Answer {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return rawText(Insufficient)
	}

	if body, ok := jsonBody(trimmed); ok {
		var s Structured
		if err := json.Unmarshal([]byte(body), &s); err == nil && strings.TrimSpace(s.BriefExplanation) != "" {
			return Answer{Kind: KindStructured, Structured: &s}
		}
	}
	return rawText(trimmed)
}

// jsonBody strips a markdown code fence and checks for an object.
func jsonBody(s string) (string, bool) {
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	return s, strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")
}

// Markdown renders the answer for display.
func (a Answer) Markdown() string {
	if a.Kind != KindStructured || a.Structured == nil {
		if strings.TrimSpace(a.Text) == "" {
			return Insufficient
		}
		return a.Text
	}

	s := a.Structured
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Brief Explanation**: %s\n", strings.TrimSpace(s.BriefExplanation))
	if len(s.Steps) > 0 {
		sb.WriteString("\n**Step-wise Breakdown**\n")
		for i, step := range s.Steps {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, strings.TrimSpace(step))
		}
	}
	if len(s.LegalReferences) > 0 {
		sb.WriteString("\n**Legal References**\n")
		for _, ref := range s.LegalReferences {
			fmt.Fprintf(&sb, "- %s\n", strings.TrimSpace(ref))
		}
	}
	if c := strings.TrimSpace(s.Clarification); c != "" {
		fmt.Fprintf(&sb, "\n**Clarification**: %s\n", c)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// SourceList renders the retrieved sources as citation lines.
func (a Answer) SourceList() []string {
	out := make([]string, 0, len(a.Sources))
	for _, s := range a.Sources {
		out = append(out, s.Source())
	}
	return out
}
