// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicegraph/internal/session"
)

func TestFitKeepsSystemMessageAlways(t *testing.T) {
	cm, err := NewContextManager(20)
	require.NoError(t, err)

	messages := []session.Message{
		{Role: session.RoleSystem, Content: "you are a helpful assistant"},
		{Role: session.RoleUser, Content: strings.Repeat("word ", 50)},
		{Role: session.RoleUser, Content: "hi"},
	}
	fit := cm.Fit(messages)
	require.Equal(t, session.RoleSystem, fit[0].Role)
}

func TestFitDropsOldestFirst(t *testing.T) {
	cm, err := NewContextManager(5)
	require.NoError(t, err)

	messages := []session.Message{
		{Role: session.RoleUser, Content: "oldest message should be dropped"},
		{Role: session.RoleUser, Content: "hi"},
	}
	fit := cm.Fit(messages)
	require.Equal(t, "hi", fit[len(fit)-1].Content)
}
