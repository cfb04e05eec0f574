// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package audio

import "github.com/zaf/g711"

// NarrowbandCodec companders PCM16 to/from G.711 (PCMU/PCMA) for
// constrained robot links negotiated as a fallback to Opus — never used
// unless negotiated).
type NarrowbandCodec struct {
	ALaw bool // true selects PCMA, false selects PCMU
}

func (c NarrowbandCodec) Encode(pcm16 []byte) []byte {
	samples := bytesToInt16(pcm16)
	if c.ALaw {
		return g711.EncodeAlaw(samples)
	}
	return g711.EncodeUlaw(samples)
}

func (c NarrowbandCodec) Decode(encoded []byte) []byte {
	var samples []int16
	if c.ALaw {
		samples = g711.DecodeAlaw(encoded)
	} else {
		samples = g711.DecodeUlaw(encoded)
	}
	return int16ToBytes(samples)
}
