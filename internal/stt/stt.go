// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package stt defines the streaming speech-to-text adapter contract and
// its concrete provider implementations.
package stt

import (
	"context"
	"time"

	"github.com/rapidaai/voicegraph/internal/frame"
)

// FirstByteBudget is the default time allowed for the first interim
// hypothesis to arrive after speech starts.
const FirstByteBudget = 1500 * time.Millisecond

// Hypothesis is one interim or final transcription result from a provider.
type Hypothesis struct {
	Text      string
	SpeakerID string
	Final     bool
}

// Adapter streams audio to a provider and yields hypotheses. Implementations
// own their provider connection; none of them reconnects after that
// connection fails, so a failed SendAudio surfaces as an error to the
// stage. Results is valid only between Start and Stop.
type Adapter interface {
	Start(ctx context.Context) error
	SendAudio(ctx context.Context, pcm16 []byte, sampleRate int) error
	Results() <-chan Hypothesis
	Stop() error
}

// Stage adapts an Adapter into the pipeline's Stage contract: AudioInput in,
// STTInterim/STTFinal out. Finals are emitted at most once per VAD turn —
// enforced by the turn aggregator downstream, not here.
type Stage struct {
	Provider Adapter

	started   time.Time
	gotFirst  bool
}

func NewStage(provider Adapter) *Stage { return &Stage{Provider: provider} }

func (s *Stage) Name() string { return "stt" }

func (s *Stage) Start(ctx context.Context) error {
	s.started = time.Now()
	return s.Provider.Start(ctx)
}

func (s *Stage) Stop(error) error { return s.Provider.Stop() }

func (s *Stage) Classify(err error) frame.ErrorKind {
	return frame.ErrTransientNetwork
}

func (s *Stage) Process(ctx context.Context, in frame.Frame) ([]frame.Frame, error) {
	audio, ok := in.(*frame.AudioInput)
	if !ok {
		return nil, nil
	}
	if err := s.Provider.SendAudio(ctx, audio.PCM16, audio.SampleRate); err != nil {
		return nil, frame.NewPipelineError(s.Name(), frame.ErrTransientNetwork, err)
	}

	var out []frame.Frame
	for {
		select {
		case hyp, ok := <-s.Provider.Results():
			if !ok {
				return out, nil
			}
			if !s.gotFirst {
				s.gotFirst = true
				out = append(out, frame.NewMetric(audio.TurnID(), s.Name(), frame.MetricSTTTTFB, float64(time.Since(s.started).Milliseconds())))
			}
			if hyp.Final {
				out = append(out, frame.NewSTTFinal(audio.TurnID(), hyp.Text, hyp.SpeakerID))
			} else {
				out = append(out, frame.NewSTTInterim(audio.TurnID(), hyp.Text, hyp.SpeakerID))
			}
		default:
			return out, nil
		}
	}
}
