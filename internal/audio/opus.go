// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package audio

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"
)

// OpusCodec encodes/decodes PCM16 to/from Opus for the WebRTC audio path
// (Opus is the preferred codec for the WebRTC audio path).
type OpusCodec struct {
	enc        *opus.Encoder
	dec        *opus.Decoder
	sampleRate int
	channels   int
}

func NewOpusCodec(sampleRate, channels int) (*OpusCodec, error) {
	enc, err := opus.NewEncoder(sampleRate, channels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("audio: new opus encoder: %w", err)
	}
	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("audio: new opus decoder: %w", err)
	}
	return &OpusCodec{enc: enc, dec: dec, sampleRate: sampleRate, channels: channels}, nil
}

// Encode compresses one 20ms PCM16 frame to Opus.
func (c *OpusCodec) Encode(pcm16 []byte) ([]byte, error) {
	samples := bytesToInt16(pcm16)
	buf := make([]byte, 4000)
	n, err := c.enc.Encode(samples, buf)
	if err != nil {
		return nil, fmt.Errorf("audio: opus encode: %w", err)
	}
	return buf[:n], nil
}

// Decode expands one Opus packet back to PCM16.
func (c *OpusCodec) Decode(opusPacket []byte) ([]byte, error) {
	frameSize := c.sampleRate / 50 // 20ms frame
	pcm := make([]int16, frameSize*c.channels)
	n, err := c.dec.Decode(opusPacket, pcm)
	if err != nil {
		return nil, fmt.Errorf("audio: opus decode: %w", err)
	}
	return int16ToBytes(pcm[:n*c.channels]), nil
}
