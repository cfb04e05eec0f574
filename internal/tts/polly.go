// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package tts

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/polly"
	"github.com/aws/aws-sdk-go/service/polly/pollyiface"

	"github.com/rapidaai/voicegraph/internal/tts/normalize"
)

const defaultPollyVoice = "Joanna"

// PollyAdapter is the alternate TTS provider. Text is run
// through the SSML normalizer before synthesis, generalized from the
// teacher's per-provider transformer normalizers.
type PollyAdapter struct {
	client pollyiface.PollyAPI
	voice  string
}

func NewPollyAdapter(client pollyiface.PollyAPI, voice string) *PollyAdapter {
	if voice == "" {
		voice = defaultPollyVoice
	}
	return &PollyAdapter{client: client, voice: voice}
}

func (p *PollyAdapter) Synthesize(ctx context.Context, text string, sampleRate int) ([]byte, error) {
	ssml := normalize.ToSSML(text)
	out, err := p.client.SynthesizeSpeechWithContext(ctx, &polly.SynthesizeSpeechInput{
		Text:         aws.String(ssml),
		TextType:     aws.String(polly.TextTypeSsml),
		VoiceId:      aws.String(p.voice),
		OutputFormat: aws.String(polly.OutputFormatPcm),
		SampleRate:   aws.String(fmt.Sprintf("%d", sampleRate)),
	})
	if err != nil {
		return nil, fmt.Errorf("tts: polly synthesize: %w", err)
	}
	defer out.AudioStream.Close()
	audio, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, fmt.Errorf("tts: polly read stream: %w", err)
	}
	return audio, nil
}
