// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package llm

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/rapidaai/voicegraph/internal/session"
)

// AnthropicAdapter is the alternate LLM provider.
type AnthropicAdapter struct {
	client anthropic.Client
	model  anthropic.Model
}

func NewAnthropicAdapter(apiKey string, model anthropic.Model) *AnthropicAdapter {
	if model == "" {
		model = anthropic.ModelClaude3_5SonnetLatest
	}
	return &AnthropicAdapter{client: anthropic.NewClient(option.WithAPIKey(apiKey)), model: model}
}

func (a *AnthropicAdapter) Stream(ctx context.Context, messages []session.Message, tools []ToolSchema) (<-chan Delta, error) {
	var system string
	var turns []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case session.RoleSystem:
			system = m.Content
		case session.RoleAssistant:
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	stream := a.client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: 1024,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages:  turns,
		Tools:     toAnthropicTools(tools),
	})

	out := make(chan Delta, 16)
	go func() {
		defer close(out)
		for stream.Next() {
			event := stream.Current()
			if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
				if text, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok {
					out <- Delta{Text: text.Text}
				}
			}
		}
		out <- Delta{Done: true}
	}()
	return out, nil
}

func toAnthropicTools(tools []ToolSchema) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name,
				Description: anthropic.String(tool.Description),
			},
		})
	}
	return out
}
