// Package logging adapts zap to the logger port consumed by the service
// and sweep loops.
package logging

import (
	"fmt"

	"go.uber.org/zap"

	"crowdcore/internal/core"
)

type zapLogger struct {
	s *zap.SugaredLogger
}

var _ core.Logger = (*zapLogger)(nil)

// New builds a production or development logger. The returned flush
// function should run before process exit.
func New(debug bool) (core.Logger, func() error, error) {
	var (
		l   *zap.Logger
		err error
	)
	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return &zapLogger{s: l.Sugar()}, l.Sync, nil
}

// Wrap adapts an existing zap logger, mainly for tests.
func Wrap(l *zap.Logger) core.Logger { return &zapLogger{s: l.Sugar()} }

func (l *zapLogger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l *zapLogger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l *zapLogger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
func (l *zapLogger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }
