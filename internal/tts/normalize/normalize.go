// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package normalize turns raw assistant text into SSML safe for a TTS
// provider: markdown stripped, XML-escaped, whitespace collapsed.
// Generalized from the teacher's per-provider normalizer pipeline.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	headerPattern      = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	emphasisPattern    = regexp.MustCompile(`\*{1,2}([^*]+?)\*{1,2}|_{1,2}([^_]+?)_{1,2}`)
	inlineCodePattern  = regexp.MustCompile("`([^`]+)`")
	codeBlockPattern   = regexp.MustCompile("(?s)```[^`]*```")
	blockquotePattern  = regexp.MustCompile(`(?m)^>\s?`)
	linkPattern        = regexp.MustCompile(`\[(.*?)\]\(.*?\)`)
	imagePattern       = regexp.MustCompile(`!\[(.*?)\]\(.*?\)`)
	horizontalRulePat  = regexp.MustCompile(`(?m)^(-{3,}|\*{3,}|_{3,})$`)
	leftoverMarkersPat = regexp.MustCompile(`[*_]+`)
	whitespacePattern  = regexp.MustCompile(`\s+`)

	xmlEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&apos;",
	)
)

// RemoveMarkdown strips markdown formatting an LLM tends to emit in replies
// that were never meant to be rendered as markdown once spoken.
func RemoveMarkdown(text string) string {
	text = headerPattern.ReplaceAllString(text, "")
	text = emphasisPattern.ReplaceAllString(text, "$1$2")
	text = inlineCodePattern.ReplaceAllString(text, "$1")
	text = codeBlockPattern.ReplaceAllString(text, "")
	text = blockquotePattern.ReplaceAllString(text, "")
	text = linkPattern.ReplaceAllString(text, "$1")
	text = imagePattern.ReplaceAllString(text, "$1")
	text = horizontalRulePat.ReplaceAllString(text, "")
	text = leftoverMarkersPat.ReplaceAllString(text, "")
	return text
}

func escapeXML(text string) string { return xmlEscaper.Replace(text) }

func collapseWhitespace(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// ToSSML runs the full pipeline and wraps the result in <speak>, ready for
// an SSML-capable provider (Polly).
func ToSSML(text string) string {
	text = RemoveMarkdown(text)
	text = escapeXML(text)
	text = collapseWhitespace(text)
	return fmt.Sprintf("<speak>%s</speak>", text)
}

// ToPlainText runs the pipeline without SSML wrapping, for providers that
// accept plain text (Google Cloud TTS's default text input).
func ToPlainText(text string) string {
	text = RemoveMarkdown(text)
	return collapseWhitespace(text)
}

// Break builds an SSML <break> element of the given duration.
func Break(durationMs int) string { return fmt.Sprintf(`<break time="%dms"/>`, durationMs) }
