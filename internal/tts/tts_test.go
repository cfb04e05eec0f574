// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package tts

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitSentencesBasic(t *testing.T) {
	out := SplitSentences("Hello there. How are you? I'm fine!")
	require.Equal(t, []string{"Hello there.", "How are you?", "I'm fine!"}, out)
}

func TestSplitSentencesNoTerminalPunctuation(t *testing.T) {
	out := SplitSentences("this is still streaming")
	require.Equal(t, []string{"this is still streaming"}, out)
}

func TestSplitSentencesEmpty(t *testing.T) {
	require.Nil(t, SplitSentences("   "))
}
