// Copyright (c) 2021 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package corelog

import (
	"strings"

	"github.com/rs/zerolog"
)

// BadgerLogger routes badger's printf-style output into zerolog.
// Badger's info chatter is demoted to debug.
type BadgerLogger struct {
	zerolog.Logger
}

func (l BadgerLogger) Errorf(format string, args ...interface{}) {
	l.Logger.Error().Msgf(strings.TrimSpace(format), args...)
}

func (l BadgerLogger) Warningf(format string, args ...interface{}) {
	l.Logger.Warn().Msgf(strings.TrimSpace(format), args...)
}

func (l BadgerLogger) Infof(format string, args ...interface{}) {
	l.Logger.Debug().Msgf(strings.TrimSpace(format), args...)
}

func (l BadgerLogger) Debugf(format string, args ...interface{}) {
	l.Logger.Trace().Msgf(strings.TrimSpace(format), args...)
}
