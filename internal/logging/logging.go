// Package logging provides the process-wide zap logger.
package logging

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.Mutex
	logger *zap.SugaredLogger
)

// Init configures the global logger. Debug switches to the development
// encoder with debug-level output. Safe to call more than once; the last
// call wins.
func Init(debug bool) {
	mu.Lock()
	defer mu.Unlock()
	logger = build(debug)
}

// L returns the global logger, lazily constructed at production level.
func L() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = build(false)
	}
	return logger
}

// Named returns a child logger scoped to a component name.
func Named(name string) *zap.SugaredLogger {
	return L().Named(name)
}

func build(debug bool) *zap.SugaredLogger {
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
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}
