// Package log wires the engine's logr.Logger to a zap backend, the same split the rest of the
// ecosystem uses: packages take a logr.Logger so they never import zap directly, and this package
// is the one place that decides which zap configuration backs it.
package log

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
)

// New returns a logr.Logger backed by a development zap configuration (human-readable, debug
// level enabled) when development is true, or a production configuration (JSON, info level)
// otherwise.
func New(development bool) (logr.Logger, error) {
	var zl *zap.Logger
	var err error
	if development {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		return logr.Discard(), err
	}
	return zapr.NewLogger(zl), nil
}

// Discard returns a logger that drops everything, for callers (tests, library consumers that
// have not configured logging) that do not want the engine's log output.
func Discard() logr.Logger { return logr.Discard() }
