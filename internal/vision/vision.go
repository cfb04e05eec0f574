// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package vision implements the contract for analysing a camera frame
// captured by the hardware adapter.
package vision

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Adapter describes one captured JPEG frame in natural language, for the
// LLM to reason about after a capture_camera_view tool call.
type Adapter interface {
	Analyse(ctx context.Context, jpeg []byte, prompt string) (string, error)
}

// GenAIAdapter is the sole Vision implementation, backed by
// google.golang.org/genai (SPEC_FULL.md DOMAIN STACK).
type GenAIAdapter struct {
	client *genai.Client
	model  string
}

func NewGenAIAdapter(client *genai.Client, model string) *GenAIAdapter {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GenAIAdapter{client: client, model: model}
}

func (a *GenAIAdapter) Analyse(ctx context.Context, jpeg []byte, prompt string) (string, error) {
	if prompt == "" {
		prompt = "Describe what the robot's camera currently sees, briefly."
	}
	resp, err := a.client.Models.GenerateContent(ctx, a.model, []*genai.Content{
		{Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: jpeg}},
			{Text: prompt},
		}},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("vision: generate content: %w", err)
	}
	return resp.Text(), nil
}
