// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRemoveMarkdownStripsFormatting(t *testing.T) {
	out := RemoveMarkdown("# Title\n**bold** and _italic_ and `code`")
	require.Equal(t, "Title\nbold and italic and code", out)
}

func TestToSSMLEscapesAndWraps(t *testing.T) {
	out := ToSSML("5 < 10 & true")
	require.Equal(t, "<speak>5 &lt; 10 &amp; true</speak>", out)
}

func TestToPlainTextCollapsesWhitespace(t *testing.T) {
	out := ToPlainText("hello   \n\n world")
	require.Equal(t, "hello world", out)
}
