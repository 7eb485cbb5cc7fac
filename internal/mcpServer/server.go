// Package mcpServer exposes legal document search as an MCP tool.
package mcpServer

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/akolanti/LegalRAG/internal/config"
	"github.com/akolanti/LegalRAG/internal/rag/answer"
	"github.com/akolanti/LegalRAG/internal/rag/retrieval"
	"github.com/akolanti/LegalRAG/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const Version = "0.1.0"

type SearchInput struct {
	Query string `json:"query" jsonschema:"the legal question or topic to search for"`
}

type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
	Text    string               `json:"text"`
}

type SearchResultOutput struct {
	Title    string  `json:"title"`
	Section  int     `json:"section"`
	Source   string  `json:"source"`
	Score    float32 `json:"score"`
	Text     string  `json:"text"`
	Rank     int     `json:"rank"`
	RecordId string  `json:"record_id"`
}

type Server struct {
	retriever answer.Retriever
	server    *mcp.Server
	logger    *logger_i.Logger
}

func NewServer(r answer.Retriever) (*Server, error) {
	if r == nil {
		return nil, errors.New("mcp server needs a retriever")
	}
	s := &Server{
		retriever: r,
		server:    mcp.NewServer(&mcp.Implementation{Name: "legalrag", Version: Version}, nil),
		logger:    logger_i.NewLogger("mcp"),
	}
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        answer.SearchToolName,
		Description: "Search the indexed legal documents for the passages most relevant to a query",
	}, s.handleSearch)
	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving over stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: config.ReadTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("mcp http shutdown failed", "error", err)
		}
	}()

	s.logger.Info("serving over http", "address", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, SearchOutput{}, errors.New("query is required")
	}

	results, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		s.logger.Error("search tool failed", "error", err)
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
		Text:    retrieval.Format(results),
	}
	for i, r := range results {
		output.Results[i] = SearchResultOutput{
			Title:    r.Record.Payload.SourceFile,
			Section:  r.Record.Payload.ChunkIndex + 1,
			Source:   r.Record.Payload.SourcePath,
			Score:    r.Score,
			Text:     r.Record.Payload.Text,
			Rank:     r.Rank,
			RecordId: r.Record.Id,
		}
	}
	s.logger.Debug("search tool served", "results", output.Count)
	return nil, output, nil
}
