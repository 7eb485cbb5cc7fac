package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/akolanti/LegalRAG/internal/app"
	"github.com/akolanti/LegalRAG/internal/config"
	"github.com/akolanti/LegalRAG/internal/rag/answer"
	"github.com/akolanti/LegalRAG/internal/rag/fakes"
	"github.com/akolanti/LegalRAG/internal/rag/ingest"
	"github.com/akolanti/LegalRAG/internal/rag/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const leaseText = "A landlord must give thirty days written notice before ending a periodic tenancy."

// fakeBuilder shares one index across commands so ask sees what ingest stored.
func fakeBuilder(summary string) Builder {
	idx := fakes.NewIndex()
	extractor := &fakes.Extractor{
		Texts:  map[string]string{"lease.pdf": leaseText},
		Errors: map[string]error{"scan.pdf": os.ErrInvalid},
	}
	model := &fakes.LLM{OnComplete: func(ctx context.Context, req llm.Request) (string, error) {
		if tool, ok := req.Tool(answer.SearchToolName); ok {
			return tool.Invoke(ctx, `{"query":"`+leaseText+`"}`), nil
		}
		return summary, nil
	}}
	return func(ctx context.Context, s config.Settings) (*app.App, error) {
		return app.Bootstrap(ctx, s,
			app.WithIndex(idx),
			app.WithEmbedder(&fakes.Embedder{Dim: 4}),
			app.WithLLM(model),
			app.WithExtractor(extractor),
			app.WithClock(&fakes.Clock{}))
	}
}

func execute(t *testing.T, build Builder, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand(build)
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(append([]string{"--env=" + filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func pdfDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF"), 0o644))
	}
	return dir
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand(fakeBuilder(""))
	names := []string{}
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"ingest", "ask", "mcp"})

	serve, _, err := root.Find([]string{"mcp", "serve"})
	require.NoError(t, err)
	flag := serve.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "p", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
}

func TestIngestCommand(t *testing.T) {
	dir := pdfDir(t, "lease.pdf", "scan.pdf", "notes.txt")

	out, _, err := execute(t, fakeBuilder(""), "ingest", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "files processed: 2")
	assert.Contains(t, out, "files failed:    1")
	assert.Contains(t, out, "chunks stored:   1")
	assert.Contains(t, out, "failed: scan.pdf")
	assert.Contains(t, out, "Ingestion was partial.")
}

func TestIngestCommand_JSON(t *testing.T) {
	dir := pdfDir(t, "lease.pdf")

	out, _, err := execute(t, fakeBuilder(""), "ingest", "--json", dir)
	require.NoError(t, err)
	var report ingest.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.FilesProcessed)
	assert.Zero(t, report.FilesFailed)
	assert.Equal(t, 1, report.ChunksProcessed)
}

func TestIngestCommand_MissingDirectory(t *testing.T) {
	_, _, err := execute(t, fakeBuilder(""), "ingest", filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestAskCommand(t *testing.T) {
	build := fakeBuilder(`{"brief_explanation":"Thirty days notice.","steps":["Serve written notice"],"legal_references":["lease.pdf"],"clarification":"Need more?"}`)
	_, _, err := execute(t, build, "ingest", pdfDir(t, "lease.pdf"))
	require.NoError(t, err)

	out, progress, err := execute(t, build, "ask", "how", "much", "notice?")
	require.NoError(t, err)
	assert.Contains(t, out, "**Brief Explanation**: Thirty days notice.")
	assert.Contains(t, out, "1. Serve written notice")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "lease.pdf (chunk 0")
	assert.Contains(t, progress, "[  0%]")
	assert.Contains(t, progress, "[100%]")
}

func TestAskCommand_JSONWithoutDocuments(t *testing.T) {
	out, _, err := execute(t, fakeBuilder("Nothing in the collection covers this."), "ask", "--json", "what is an easement?")
	require.NoError(t, err)

	var got struct {
		Question string   `json:"question"`
		Kind     string   `json:"answer_kind"`
		Answer   string   `json:"answer"`
		Sources  []string `json:"sources"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "what is an easement?", got.Question)
	assert.Equal(t, string(answer.KindRawText), got.Kind)
	assert.Equal(t, "Nothing in the collection covers this.", got.Answer)
	assert.Empty(t, got.Sources)
}

func TestAskCommand_RequiresQuestion(t *testing.T) {
	_, _, err := execute(t, fakeBuilder(""), "ask")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}
