// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package logging

import (
	"os"

	"go.uber.org/zap"
)

func zapcoreStdout() *os.File {
	return os.Stdout
}

// Nop returns a Logger that discards everything; used in tests.
func Nop() Logger {
	return &zapLogger{s: zap.NewNop().Sugar()}
}
