package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/LegalRAG/internal/config"
	"github.com/akolanti/LegalRAG/internal/customHttpClient"
	"github.com/akolanti/LegalRAG/internal/rag/llm"
	"github.com/akolanti/LegalRAG/pkg/logger_i"
	"google.golang.org/genai"
)

type llmClient struct {
	client    *genai.Client
	modelName string
	maxRounds int
	logger    *logger_i.Logger
}

func New(ctx context.Context, modelName string, apikey string) (llm.Provider, error) {
	if apikey == "" {
		return nil, errors.New("gemini: missing API key")
	}
	if modelName == "" {
		modelName = config.GeminiModelName
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apikey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: customHttpClient.New(0),
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	logger := logger_i.NewLogger("llm_gemini")
	logger.Info("Gemini client created", "model", modelName)
	return &llmClient{client: c, modelName: modelName, maxRounds: config.MaxToolRounds, logger: logger}, nil
}

func (c *llmClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	log := c.logger.WithTrace(ctx)

	contentConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](config.ModelTemperature),
	}
	if req.SystemPrompt != "" {
		contentConfig.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		contentConfig.Tools = []*genai.Tool{{FunctionDeclarations: declarations(req.Tools)}}
	}
	if req.JSON {
		contentConfig.ResponseMIMEType = "application/json"
	}

	history := []*genai.Content{genai.NewContentFromText(req.UserPrompt, genai.RoleUser)}
	for round := 0; round <= c.maxRounds; round++ {
		result, err := c.client.Models.GenerateContent(ctx, c.modelName, history, contentConfig)
		if err != nil {
			log.Error("generate content failed", "round", round, "error", err)
			return "", fmt.Errorf("gemini generate content: %w", err)
		}

		calls := result.FunctionCalls()
		if len(calls) == 0 {
			return result.Text(), nil
		}
		if len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
			history = append(history, result.Candidates[0].Content)
		}

		parts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			log.Debug("function call", "tool", call.Name, "round", round)
			out := fmt.Sprintf("unknown tool %q", call.Name)
			if tool, ok := req.Tool(call.Name); ok {
				out = tool.InvokeArgs(ctx, call.Args)
			}
			parts = append(parts, genai.NewPartFromFunctionResponse(call.Name, map[string]any{"output": out}))
		}
		history = append(history, genai.NewContentFromParts(parts, genai.RoleUser))
	}
	return "", llm.ErrToolRoundsExceeded
}

func declarations(tools []llm.Tool) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					t.Arg(): {Type: genai.TypeString, Description: "search text"},
				},
				Required: []string{t.Arg()},
			},
		})
	}
	return decls
}
