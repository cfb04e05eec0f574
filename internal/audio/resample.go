// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package audio provides the stateless PCM16 resampling and codec
// conversion helpers shared by the transport and TTS/STT stages.
package audio

import (
	"fmt"

	resampler "github.com/tphakala/go-audio-resampler"
)

// Resample converts PCM16 mono/stereo audio from srcRate to dstRate. A
// no-op when the rates already match.
func Resample(pcm16 []byte, srcRate, dstRate, channels int) ([]byte, error) {
	if srcRate == dstRate {
		return pcm16, nil
	}
	samples := bytesToInt16(pcm16)
	out, err := resampler.ResampleInt16(samples, srcRate, dstRate, channels)
	if err != nil {
		return nil, fmt.Errorf("audio: resample %dHz->%dHz: %w", srcRate, dstRate, err)
	}
	return int16ToBytes(out), nil
}

func bytesToInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(b[2*i]) | int16(b[2*i+1])<<8
	}
	return out
}

func int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out
}
