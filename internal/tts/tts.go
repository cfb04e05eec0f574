// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package tts splits assistant text into sentences and synthesizes audio
// through a provider adapter.
package tts

import (
	"context"
	"regexp"
	"strings"
)

// Adapter synthesizes one sentence of text into PCM16 audio at sampleRate.
type Adapter interface {
	Synthesize(ctx context.Context, text string, sampleRate int) ([]byte, error)
}

var sentenceBoundary = regexp.MustCompile(`(?:[.!?]+["')\]]?\s+)|(?:[.!?]+["')\]]?$)`)

// SplitSentences breaks streamed assistant text into sentence-sized units
// suitable for incremental synthesis. Abbreviations are not
// specially handled; a slightly early split only costs one extra short TTS
// call, never correctness.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	locs := sentenceBoundary.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}

	var out []string
	start := 0
	for _, loc := range locs {
		sentence := strings.TrimSpace(text[start:loc[1]])
		if sentence != "" {
			out = append(out, sentence)
		}
		start = loc[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}
