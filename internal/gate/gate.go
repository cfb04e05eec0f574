// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package gate implements the decision stage that suppresses spurious
// replies (e.g. background chatter mistaken for a turn) before the LLM
// sees them.
package gate

import (
	"context"
	"fmt"
	"strings"
	"time"

	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	cohere "github.com/cohere-ai/cohere-go/v2"

	"github.com/rapidaai/voicegraph/internal/frame"
)

// FailMode resolves what happens when the classifier call errors or times
// out (default open).
type FailMode string

const (
	FailOpen   FailMode = "open"
	FailClosed FailMode = "closed"
)

// Config controls the gate stage.
type Config struct {
	Model    string
	Timeout  time.Duration
	FailMode FailMode
}

func DefaultConfig() Config {
	return Config{Model: "command-r", Timeout: 400 * time.Millisecond, FailMode: FailOpen}
}

// Stage classifies an STTFinal as allow/suppress via a single Cohere chat
// completion constrained to a one-word response.
type Stage struct {
	client *cohereclient.Client
	cfg    Config
}

func NewStage(client *cohereclient.Client, cfg Config) *Stage {
	return &Stage{client: client, cfg: cfg}
}

func (s *Stage) Name() string                  { return "gate" }
func (s *Stage) Start(context.Context) error    { return nil }
func (s *Stage) Stop(error) error               { return nil }
func (s *Stage) Classify(err error) frame.ErrorKind {
	return frame.ErrTransientNetwork
}

func (s *Stage) Process(ctx context.Context, in frame.Frame) ([]frame.Frame, error) {
	final, ok := in.(*frame.STTFinal)
	if !ok {
		return []frame.Frame{in}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	allow, err := s.classify(ctx, final.Text)
	if err != nil {
		allow = s.cfg.FailMode == FailOpen
		if !allow {
			metricOut := frame.NewMetric(final.TurnID(), s.Name(), frame.MetricGateSuppress, boolToFloat(!allow))
			return suppressedFrames(final, metricOut, "suppressed: gate classifier unavailable"), nil
		}
		return []frame.Frame{final}, nil
	}

	if !allow {
		metricOut := frame.NewMetric(final.TurnID(), s.Name(), frame.MetricGateSuppress, 1)
		return suppressedFrames(final, metricOut, "suppressed: not directed at the assistant"), nil
	}
	return []frame.Frame{final}, nil
}

// suppressedFrames builds the pair of frames emitted whenever a turn is
// held back from the LLM: a metric for the observer table and a system note
// so the client knows the turn was seen and deliberately dropped, rather
// than silently lost.
func suppressedFrames(final *frame.STTFinal, metricOut *frame.Metric, note string) []frame.Frame {
	return []frame.Frame{metricOut, frame.NewSystemNote(final.TurnID(), note)}
}

func (s *Stage) classify(ctx context.Context, text string) (bool, error) {
	resp, err := s.client.Chat(ctx, &cohere.ChatRequest{
		Model:   &s.cfg.Model,
		Message: gatePrompt(text),
	})
	if err != nil {
		return false, fmt.Errorf("gate: cohere chat: %w", err)
	}
	verdict := strings.ToLower(strings.TrimSpace(resp.Text))
	return strings.HasPrefix(verdict, "allow"), nil
}

func gatePrompt(text string) string {
	return fmt.Sprintf(
		"You are a gate that decides whether a transcribed utterance is a genuine request directed at an assistant, "+
			"or background noise/chatter that should be ignored. Respond with exactly one word: allow or suppress.\n\nUtterance: %q",
		text,
	)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
