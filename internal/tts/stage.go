// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package tts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rapidaai/voicegraph/internal/frame"
	"github.com/rapidaai/voicegraph/internal/queue"
)

// Sample rate TTS synthesizes at before the transport resamples to the wire
// codec's rate; the internal PCM rate is 16kHz mono.
const SampleRate = 16000

// bytesPerChunk is the PCM16 mono byte count for one AudioChunkMs chunk at
// SampleRate, matching the framing the transport expects on AudioOutput.
const bytesPerChunk = SampleRate * queue.AudioChunkMs / 1000 * 2

// Config sets the sample rate the TTS stage requests from its adapter.
type Config struct {
	SampleRate int
}

func DefaultConfig() Config {
	return Config{SampleRate: SampleRate}
}

// Stage consumes streamed assistant text and synthesizes it incrementally:
// complete sentences are sent to the provider as soon as they appear in the
// delta stream, rather than waiting for AssistantTextFinal, so audio starts
// before the LLM has finished the full reply.
type Stage struct {
	adapter Adapter
	cfg     Config

	pending   strings.Builder
	turnID    uint64
	started   bool
	ttfbSent  bool
	turnStart time.Time
}

func NewStage(adapter Adapter, cfg Config) *Stage {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = SampleRate
	}
	return &Stage{adapter: adapter, cfg: cfg}
}

func (s *Stage) Name() string               { return "tts" }
func (s *Stage) Start(context.Context) error { return nil }
func (s *Stage) Stop(error) error            { return nil }
func (s *Stage) Classify(err error) frame.ErrorKind {
	return frame.ErrTransientNetwork
}

func (s *Stage) Process(ctx context.Context, in frame.Frame) ([]frame.Frame, error) {
	switch f := in.(type) {
	case *frame.AssistantTextDelta:
		return s.consume(ctx, f.TurnID(), f.Text, false)
	case *frame.AssistantTextFinal:
		// AssistantTextFinal restates the full turn text already seen via
		// AssistantTextDelta frames; only its arrival as a flush signal matters.
		return s.consume(ctx, f.TurnID(), "", true)
	case *frame.Interrupt:
		s.reset()
		return nil, nil
	default:
		return nil, nil
	}
}

func (s *Stage) consume(ctx context.Context, turnID uint64, text string, flush bool) ([]frame.Frame, error) {
	if turnID != s.turnID {
		s.reset()
		s.turnID = turnID
		s.turnStart = time.Now()
	}
	s.pending.WriteString(text)

	var out []frame.Frame
	sentences := SplitSentences(s.pending.String())
	if !flush && len(sentences) > 0 {
		// Keep the last (possibly incomplete) sentence buffered until either
		// more text completes it or the turn flushes.
		sentences = sentences[:len(sentences)-1]
	}
	if len(sentences) == 0 && !flush {
		return nil, nil
	}

	consumed := 0
	for _, sentence := range sentences {
		consumed += len(sentence)
		frames, err := s.synthesizeSentence(ctx, turnID, sentence)
		if err != nil {
			return out, err
		}
		out = append(out, frames...)
	}
	s.trimPending(sentences)

	if flush {
		if rest := strings.TrimSpace(s.pending.String()); rest != "" {
			frames, err := s.synthesizeSentence(ctx, turnID, rest)
			if err != nil {
				return out, err
			}
			out = append(out, frames...)
		}
		if s.started {
			out = append(out, frame.NewTTSStopped(turnID))
		}
		s.reset()
	}
	return out, nil
}

func (s *Stage) trimPending(consumed []string) {
	text := s.pending.String()
	for _, sentence := range consumed {
		if idx := strings.Index(text, sentence); idx >= 0 {
			text = text[idx+len(sentence):]
		}
	}
	s.pending.Reset()
	s.pending.WriteString(text)
}

func (s *Stage) synthesizeSentence(ctx context.Context, turnID uint64, sentence string) ([]frame.Frame, error) {
	pcm, err := s.adapter.Synthesize(ctx, sentence, s.cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("tts: synthesize: %w", err)
	}

	var out []frame.Frame
	if !s.started {
		s.started = true
		out = append(out, frame.NewTTSStarted(turnID))
	}
	if !s.ttfbSent {
		s.ttfbSent = true
		out = append(out, frame.NewMetric(turnID, s.Name(), frame.MetricTTSTTFB, float64(time.Since(s.turnStart).Milliseconds())))
	}

	for start := 0; start < len(pcm); start += bytesPerChunk {
		end := start + bytesPerChunk
		if end > len(pcm) {
			end = len(pcm)
		}
		out = append(out, frame.NewAudioOutput(turnID, pcm[start:end], s.cfg.SampleRate, 1))
	}
	return out, nil
}

func (s *Stage) reset() {
	s.pending.Reset()
	s.started = false
	s.ttfbSent = false
}
