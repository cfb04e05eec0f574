// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package tts

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"

	"github.com/rapidaai/voicegraph/internal/tts/normalize"
)

const defaultGoogleVoice = "en-US-Chirp-HD-F"

// GoogleAdapter is the primary TTS provider.
type GoogleAdapter struct {
	client *texttospeech.Client
	voice  string
}

func NewGoogleAdapter(client *texttospeech.Client, voice string) *GoogleAdapter {
	if voice == "" {
		voice = defaultGoogleVoice
	}
	return &GoogleAdapter{client: client, voice: voice}
}

func (g *GoogleAdapter) Synthesize(ctx context.Context, text string, sampleRate int) ([]byte, error) {
	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{InputSource: &texttospeechpb.SynthesisInput_Text{Text: normalize.ToPlainText(text)}},
		Voice: &texttospeechpb.VoiceSelectionParams{Name: g.voice, LanguageCode: "en-US"},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
			SampleRateHertz: int32(sampleRate),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("tts: google synthesize: %w", err)
	}
	return resp.GetAudioContent(), nil
}
