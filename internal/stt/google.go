// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package stt

import (
	"context"
	"fmt"
	"io"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
)

// GoogleAdapter is an alternate STT provider backed by Google Cloud Speech
// streaming recognition.
type GoogleAdapter struct {
	client *speech.Client
	stream speechpb.Speech_StreamingRecognizeClient

	mu      sync.Mutex
	results chan Hypothesis
}

func NewGoogleAdapter(client *speech.Client) *GoogleAdapter {
	return &GoogleAdapter{client: client, results: make(chan Hypothesis, 32)}
}

func (g *GoogleAdapter) Start(ctx context.Context) error {
	stream, err := g.client.StreamingRecognize(ctx)
	if err != nil {
		return fmt.Errorf("stt: google streaming recognize: %w", err)
	}
	cfg := &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz: 16000,
					LanguageCode:    "en-US",
				},
				InterimResults: true,
			},
		},
	}
	if err := stream.Send(cfg); err != nil {
		return fmt.Errorf("stt: google send config: %w", err)
	}
	g.mu.Lock()
	g.stream = stream
	g.mu.Unlock()
	go g.pump()
	return nil
}

func (g *GoogleAdapter) pump() {
	defer close(g.results)
	for {
		g.mu.Lock()
		stream := g.stream
		g.mu.Unlock()
		if stream == nil {
			return
		}
		resp, err := stream.Recv()
		if err == io.EOF || err != nil {
			return
		}
		for _, result := range resp.GetResults() {
			if len(result.GetAlternatives()) == 0 {
				continue
			}
			alt := result.GetAlternatives()[0]
			select {
			case g.results <- Hypothesis{Text: alt.GetTranscript(), Final: result.GetIsFinal()}:
			default:
			}
		}
	}
}

func (g *GoogleAdapter) SendAudio(_ context.Context, pcm16 []byte, _ int) error {
	g.mu.Lock()
	stream := g.stream
	g.mu.Unlock()
	if stream == nil {
		return fmt.Errorf("stt: google: not connected")
	}
	return stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{AudioContent: pcm16},
	})
}

func (g *GoogleAdapter) Results() <-chan Hypothesis { return g.results }

func (g *GoogleAdapter) Stop() error {
	g.mu.Lock()
	stream := g.stream
	g.stream = nil
	g.mu.Unlock()
	if stream != nil {
		return stream.CloseSend()
	}
	return nil
}
