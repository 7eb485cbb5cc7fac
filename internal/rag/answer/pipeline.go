// Package answer runs the two model stages that turn a legal question into a summarized answer.
package answer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/LegalRAG/internal/domain/commonModels"
	"github.com/akolanti/LegalRAG/internal/metrics"
	"github.com/akolanti/LegalRAG/internal/rag/llm"
	"github.com/akolanti/LegalRAG/internal/rag/retrieval"
	"github.com/akolanti/LegalRAG/pkg/logger_i"
)

const (
	SearchToolName = "search_legal_documents"

	ProgressStart      = 0
	ProgressRetrieved  = 50
	ProgressSummarized = 100
)

// NothingRetrieved replaces an empty research stage as summarizer input.
const NothingRetrieved = "No relevant legal documents were retrieved for this query."

const researchSystemPrompt = `You are a Legal Query Agent, a legal research expert skilled in retrieving precise legal information.
Your goal is to fetch the most relevant legal sections for the user's query.
Always call the search_legal_documents tool before answering and only use what it returns.`

const researchTask = `Find the most relevant legal documents for the given query.
Extract key sections related to the topic and present them in a structured format:
- Title of the legal section
- Key points
- Relevance score
- Source of the document
If the tool finds nothing, say that no relevant legal documents were found.

Query: %s`

const summarySystemPrompt = `You are a Legal Summarization Agent, a legal expert skilled at simplifying complex legal texts while keeping them accurate.
Summarize the retrieved legal documents into a clear, concise response.
Reply with a JSON object only, using exactly these keys:
"brief_explanation": a summary of the legal concept,
"steps": a step-wise breakdown and simplification of the answer (may be empty),
"legal_references": sources and key sections (may be empty),
"clarification": a question asking whether the user needs more details.
If the input says nothing relevant was retrieved, explain that briefly in brief_explanation.`

// Progress receives 0, 50 and 100 as the stages complete.
type Progress func(percent int, stage string)

type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]commonModels.SearchResult, error)
}

type Pipeline struct {
	retriever  Retriever
	researcher llm.Provider
	summarizer llm.Provider
	logger     *logger_i.Logger
}

func NewPipeline(r Retriever, researcher llm.Provider, summarizer llm.Provider) *Pipeline {
	return &Pipeline{
		retriever:  r,
		researcher: researcher,
		summarizer: summarizer,
		logger:     logger_i.NewLogger("answer"),
	}
}

// SearchTool exposes retrieval to a model. Hits are passed to collect when set.
func SearchTool(r Retriever, collect func([]commonModels.SearchResult)) llm.Tool {
	return llm.Tool{
		Name:        SearchToolName,
		Description: "Search the legal document collection for passages relevant to a legal question.",
		Call: func(ctx context.Context, query string) (string, error) {
			results, err := r.Retrieve(ctx, query)
			if err != nil {
				return "", err
			}
			if collect != nil {
				collect(results)
			}
			return retrieval.Format(results), nil
		},
	}
}

// Answer never fails; every error path ends in a readable answer.
func (p *Pipeline) Answer(ctx context.Context, query string, progress Progress) Answer {
	log := p.logger.WithTrace(ctx)
	if progress == nil {
		progress = func(int, string) {}
	}

	progress(ProgressStart, "searching legal database")

	var mu sync.Mutex
	var sources []commonModels.SearchResult
	seen := map[string]bool{}
	tool := SearchTool(p.retriever, func(results []commonModels.SearchResult) {
		mu.Lock()
		defer mu.Unlock()
		for _, r := range results {
			if !seen[r.Record.Id] {
				seen[r.Record.Id] = true
				sources = append(sources, r)
			}
		}
	})

	start := time.Now()
	research, err := p.researcher.Complete(ctx, llm.Request{
		SystemPrompt: researchSystemPrompt,
		UserPrompt:   fmt.Sprintf(researchTask, query),
		Tools:        []llm.Tool{tool},
	})
	metrics.CaptureExecutionMetrics("llm_research", time.Since(start))
	if err != nil {
		log.Error("research stage failed", "error", err)
		research = ""
	}

	progress(ProgressRetrieved, "retrieving relevant legal sections")

	input := research
	if input == "" {
		input = NothingRetrieved
	}
	start = time.Now()
	summary, err := p.summarizer.Complete(ctx, llm.Request{
		SystemPrompt: summarySystemPrompt,
		UserPrompt:   input,
		JSON:         true,
	})
	metrics.CaptureExecutionMetrics("llm_summary", time.Since(start))
	if err != nil {
		log.Error("summary stage failed", "error", err)
		summary = ""
	}

	result := Resolve(summary)
	mu.Lock()
	result.Sources = sources
	mu.Unlock()
	metrics.CaptureAnswerKind(string(result.Kind))

	progress(ProgressSummarized, "done")
	return result
}
