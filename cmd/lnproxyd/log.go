package main

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.SugaredLogger

// initLogger constructs the process-wide SugaredLogger. By default the level
// is 'debug' and the format is 'console'.
func initLogger(level string, format string, withCaller bool) error {
	var l zapcore.Level
	switch strings.TrimSpace(strings.ToLower(level)) {
	case "", "d", "debug":
		l = zap.DebugLevel
	case "i", "info":
		l = zap.InfoLevel
	case "w", "warn", "warning":
		l = zap.WarnLevel
	case "e", "error", "errors":
		l = zap.ErrorLevel
	case "f", "fatal", "fatals":
		l = zap.FatalLevel
	default:
		return fmt.Errorf("unknown level %s", level)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.TimeKey = "time"

	if !withCaller {
		encoderConfig.EncodeCaller = nil
	}

	// format is 'console' by default
	if format == "" {
		// Add color to the level
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		format = "console"
	}

	config := zap.Config{
		Level:       zap.NewAtomicLevelAt(l),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding:         format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	lo, err := config.Build()
	if err != nil {
		return err
	}

	log = lo.Sugar()

	return nil
}
