// Package log provides the process-wide zap logger.
package log

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	mu         sync.RWMutex
	sugared    *zap.SugaredLogger
	baseLogger *zap.Logger
)

// Init initializes the package-level logger.
func Init(debug bool) error {
	var zapLogger *zap.Logger
	var err error

	if debug {
		zapLogger, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		zapLogger, err = zap.NewProduction(zap.AddCallerSkip(1))
	}
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %w", err)
	}

	mu.Lock()
	baseLogger = zapLogger
	sugared = zapLogger.Sugar()
	mu.Unlock()
	return nil
}

// GetZapLogger returns the base zap logger for libraries that need one (GORM, net/http).
func GetZapLogger() *zap.Logger {
	logger()
	mu.RLock()
	defer mu.RUnlock()
	return baseLogger
}

// logger returns the sugared logger, falling back to a production logger
// when Init has not run yet.
func logger() *zap.SugaredLogger {
	mu.RLock()
	l := sugared
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if sugared == nil {
		baseLogger, _ = zap.NewProduction(zap.AddCallerSkip(1))
		sugared = baseLogger.Sugar()
	}
	return sugared
}

// Sync flushes any buffered log entries.
func Sync() {
	mu.RLock()
	l := sugared
	mu.RUnlock()
	if l != nil {
		_ = l.Sync()
	}
}

func Debugf(template string, args ...any) {
	logger().Debugf(template, args...)
}

func Debugw(msg string, keysAndValues ...any) {
	logger().Debugw(msg, keysAndValues...)
}

func Info(args ...any) {
	logger().Info(args...)
}

func Infof(template string, args ...any) {
	logger().Infof(template, args...)
}

func Infow(msg string, keysAndValues ...any) {
	logger().Infow(msg, keysAndValues...)
}

func Warnf(template string, args ...any) {
	logger().Warnf(template, args...)
}

func Warnw(msg string, keysAndValues ...any) {
	logger().Warnw(msg, keysAndValues...)
}

func Errorf(template string, args ...any) {
	logger().Errorf(template, args...)
}

func Errorw(msg string, keysAndValues ...any) {
	logger().Errorw(msg, keysAndValues...)
}

// Fatalf logs and exits the process.
func Fatalf(template string, args ...any) {
	logger().Fatalf(template, args...)
}
