/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"net"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(cfg *Config) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true

	if cfg.verbose {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	return config.Build(zap.Fields(zap.String("version", releaseVersion)))
}

// isClientGone reports write errors caused by the client hanging up, which
// aren't worth more than a debug line.
func isClientGone(err error) bool {
	var opErr *net.OpError
	return errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, context.Canceled) ||
		errors.As(err, &opErr)
}

// logErrors drains handler write errors until ctx is done.
func logErrors(ctx context.Context, logger *zap.Logger, errs <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errs:
			if isClientGone(err) {
				logger.Debug("client went away", zap.Error(err))
				continue
			}
			logger.Warn("serving request", zap.Error(err))
		}
	}
}
