// Package logger holds the process-wide zap logger.
package logger

import (
	"go.uber.org/zap"
)

// Log is the shared logger. Init must be called once at startup; packages
// that log before Init see a no-op logger.
var Log = zap.NewNop()

// Init builds the logger for the given environment and installs it as the
// package global. It returns the logger so main can defer Sync.
func Init(environment string) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if environment == "production" {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	Log = l
	return l, nil
}
