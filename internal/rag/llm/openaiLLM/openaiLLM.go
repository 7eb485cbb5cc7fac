package openaiLLM

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/akolanti/LegalRAG/internal/config"
	"github.com/akolanti/LegalRAG/internal/customHttpClient"
	"github.com/akolanti/LegalRAG/internal/rag/llm"
	"github.com/akolanti/LegalRAG/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRounds  int
	HTTPClient *http.Client
}

type llmClient struct {
	client    openai.Client
	modelName string
	maxRounds int
	logger    *logger_i.Logger
}

func New(cfg Config) (llm.Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai llm: missing API key")
	}
	if cfg.Model == "" {
		cfg.Model = config.OpenAIChatModel
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = config.MaxToolRounds
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = customHttpClient.New(0)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(cfg.HTTPClient),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	logger := logger_i.NewLogger("llm_openai")
	logger.Info("OpenAI client created", "model", cfg.Model)
	return &llmClient{
		client:    openai.NewClient(opts...),
		modelName: cfg.Model,
		maxRounds: cfg.MaxRounds,
		logger:    logger,
	}, nil
}

// Complete runs the chat completion, answering tool calls until the model
// replies with text or the round limit is hit.
func (c *llmClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	log := c.logger.WithTrace(ctx)

	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.modelName),
		Temperature: openai.Float(config.ModelTemperature),
		Tools:       toolParams(req.Tools),
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	for round := 0; round <= c.maxRounds; round++ {
		params.Messages = messages
		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			log.Error("chat completion failed", "round", round, "error", err)
			return "", fmt.Errorf("openai chat completion: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "", errors.New("openai chat completion: no choices returned")
		}

		msg := completion.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			return msg.Content, nil
		}

		messages = append(messages, msg.ToParam())
		for _, call := range msg.ToolCalls {
			log.Debug("tool call", "tool", call.Function.Name, "round", round)
			tool, ok := req.Tool(call.Function.Name)
			out := fmt.Sprintf("unknown tool %q", call.Function.Name)
			if ok {
				out = tool.Invoke(ctx, call.Function.Arguments)
			}
			messages = append(messages, openai.ToolMessage(out, call.ID))
		}
	}
	return "", llm.ErrToolRoundsExceeded
}

func toolParams(tools []llm.Tool) []openai.ChatCompletionToolParam {
	if len(tools) == 0 {
		return nil
	}
	params := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		params = append(params, openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  shared.FunctionParameters(t.Schema()),
			},
		})
	}
	return params
}
