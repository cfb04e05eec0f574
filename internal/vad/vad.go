// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package vad turns raw audio into speech-boundary events over
// streamer45/silero-vad-go, and aggregates interim transcripts into a
// single settled turn.
package vad

import (
	"context"
	"fmt"

	silerovad "github.com/streamer45/silero-vad-go/speech"

	"github.com/rapidaai/voicegraph/internal/frame"
)

// Config controls the silence hangover that separates speech bursts.
type Config struct {
	HangoverMs float32 // default 600ms
	SampleRate int
}

func DefaultConfig() Config { return Config{HangoverMs: 600, SampleRate: 16000} }

// Detector is the VAD stage: consumes AudioInput, emits
// UserSpeechStarted/UserSpeechStopped.
type Detector struct {
	cfg     Config
	d       *silerovad.Detector
	speechOn bool
}

func NewDetector(modelPath string, cfg Config) (*Detector, error) {
	d, err := silerovad.NewDetector(silerovad.DetectorConfig{
		ModelPath:            modelPath,
		SampleRate:           cfg.SampleRate,
		Threshold:            0.5,
		MinSilenceDurationMs: int(cfg.HangoverMs),
	})
	if err != nil {
		return nil, fmt.Errorf("vad: load model: %w", err)
	}
	return &Detector{cfg: cfg, d: d}, nil
}

func (v *Detector) Name() string                { return "vad" }
func (v *Detector) Start(context.Context) error { return nil }
func (v *Detector) Stop(error) error            { return v.d.Destroy() }

func (v *Detector) Process(_ context.Context, in frame.Frame) ([]frame.Frame, error) {
	audio, ok := in.(*frame.AudioInput)
	if !ok {
		return nil, nil
	}
	segments, err := v.d.Detect(pcm16ToFloat32(audio.PCM16))
	if err != nil {
		return nil, frame.NewPipelineError(v.Name(), frame.ErrTransientNetwork, err)
	}

	var out []frame.Frame
	speaking := len(segments) > 0
	if speaking && !v.speechOn {
		v.speechOn = true
		out = append(out, frame.NewUserSpeechStarted(audio.TurnID()))
	} else if !speaking && v.speechOn {
		v.speechOn = false
		out = append(out, frame.NewUserSpeechStopped(audio.TurnID()))
	}
	return out, nil
}

func pcm16ToFloat32(pcm []byte) []float32 {
	out := make([]float32, len(pcm)/2)
	for i := range out {
		v := int16(pcm[2*i]) | int16(pcm[2*i+1])<<8
		out[i] = float32(v) / 32768.0
	}
	return out
}
