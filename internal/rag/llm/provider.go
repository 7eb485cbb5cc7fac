package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrToolRoundsExceeded means the model kept calling tools past the round limit.
var ErrToolRoundsExceeded = errors.New("tool call rounds exceeded")

// Tool is a single string-in string-out function the model may call.
type Tool struct {
	Name        string
	Description string
	// ArgName is the only argument of the tool, "query" when empty
	ArgName string
	Call    func(ctx context.Context, query string) (string, error)
}

func (t Tool) Arg() string {
	if t.ArgName == "" {
		return "query"
	}
	return t.ArgName
}

// Schema is the JSON schema of the tool arguments.
func (t Tool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			t.Arg(): map[string]any{
				"type":        "string",
				"description": "search text",
			},
		},
		"required": []string{t.Arg()},
	}
}

// Invoke decodes raw JSON arguments and calls the tool. Failures are returned
// as text so the model can see them.
func (t Tool) Invoke(ctx context.Context, rawArgs string) string {
	var args map[string]any
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return fmt.Sprintf("invalid arguments for %s: %v", t.Name, err)
	}
	return t.InvokeArgs(ctx, args)
}

func (t Tool) InvokeArgs(ctx context.Context, args map[string]any) string {
	query, _ := args[t.Arg()].(string)
	out, err := t.Call(ctx, query)
	if err != nil {
		return fmt.Sprintf("tool %s failed: %v", t.Name, err)
	}
	return out
}

type Request struct {
	SystemPrompt string
	UserPrompt   string
	Tools        []Tool
	// JSON asks for a JSON object response where the provider supports it
	JSON bool
}

func (r Request) Tool(name string) (Tool, bool) {
	for _, t := range r.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}
