// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package stt

import (
	"context"
	"fmt"
	"sync"

	dgclient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	dginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
)

// DeepgramAdapter is the primary STT provider.
type DeepgramAdapter struct {
	apiKey string
	model  string

	mu     sync.Mutex
	conn   *dgclient.WSCallback
	results chan Hypothesis
}

func NewDeepgramAdapter(apiKey, model string) *DeepgramAdapter {
	if model == "" {
		model = "nova-2"
	}
	return &DeepgramAdapter{apiKey: apiKey, model: model, results: make(chan Hypothesis, 32)}
}

func (d *DeepgramAdapter) Start(ctx context.Context) error {
	opts := &dginterfaces.LiveTranscriptionOptions{
		Model:       d.model,
		Encoding:    "linear16",
		SampleRate:  16000,
		Channels:    1,
		InterimResults: true,
	}
	callback := &deepgramCallback{out: d.results}
	conn, err := dgclient.NewWSUsingCallback(ctx, d.apiKey, &dginterfaces.ClientOptions{}, opts, callback)
	if err != nil {
		return fmt.Errorf("stt: deepgram connect: %w", err)
	}
	if !conn.Connect() {
		return fmt.Errorf("stt: deepgram connect: handshake failed")
	}
	d.mu.Lock()
	d.conn = conn
	d.mu.Unlock()
	return nil
}

func (d *DeepgramAdapter) SendAudio(_ context.Context, pcm16 []byte, _ int) error {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("stt: deepgram: not connected")
	}
	return conn.WriteBinary(pcm16)
}

func (d *DeepgramAdapter) Results() <-chan Hypothesis { return d.results }

func (d *DeepgramAdapter) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		d.conn.Stop()
	}
	close(d.results)
	return nil
}

// deepgramCallback adapts the SDK's push-style callback interface onto our
// pull-style Results() channel.
type deepgramCallback struct {
	out chan Hypothesis
}

func (c *deepgramCallback) Message(text string, isFinal bool, speaker string) error {
	select {
	case c.out <- Hypothesis{Text: text, SpeakerID: speaker, Final: isFinal}:
	default:
	}
	return nil
}
