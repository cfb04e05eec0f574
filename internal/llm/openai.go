// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package llm

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/rapidaai/voicegraph/internal/session"
)

// OpenAIAdapter is the primary LLM provider.
type OpenAIAdapter struct {
	client openai.Client
	model  string
}

func NewOpenAIAdapter(apiKey, model string) *OpenAIAdapter {
	if model == "" {
		model = openai.ChatModelGPT4o
	}
	return &OpenAIAdapter{client: openai.NewClient(option.WithAPIKey(apiKey)), model: model}
}

func (a *OpenAIAdapter) Stream(ctx context.Context, messages []session.Message, tools []ToolSchema) (<-chan Delta, error) {
	params := openai.ChatCompletionNewParams{
		Model:    a.model,
		Messages: toOpenAIMessages(messages),
		Tools:    toOpenAITools(tools),
	}
	stream := a.client.Chat.Completions.NewStreaming(ctx, params)

	out := make(chan Delta, 16)
	go func() {
		defer close(out)
		for stream.Next() {
			chunk := stream.Current()
			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					out <- Delta{Text: choice.Delta.Content}
				}
				for _, call := range choice.Delta.ToolCalls {
					out <- Delta{ToolName: call.Function.Name, ToolID: call.ID}
				}
			}
		}
		out <- Delta{Done: true}
	}()
	return out, nil
}

func toOpenAIMessages(messages []session.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case session.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case session.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		case session.RoleTool:
			out = append(out, openai.ToolMessage(m.Content, ""))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func toOpenAITools(tools []ToolSchema) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, tool := range tools {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openai.String(tool.Description),
				Parameters:  tool.Parameters,
			},
		})
	}
	return out
}
