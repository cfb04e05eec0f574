// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package audio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResampleNoopWhenRatesMatch(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}
	out, err := Resample(pcm, 16000, 16000, 1)
	require.NoError(t, err)
	require.Equal(t, pcm, out)
}

func TestBytesInt16RoundTrip(t *testing.T) {
	samples := []int16{-32768, -1, 0, 1, 32767}
	b := int16ToBytes(samples)
	require.Equal(t, samples, bytesToInt16(b))
}
