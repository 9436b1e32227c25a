// Package logger builds the process-wide zap logger.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production JSON logger for env "production" and a colourised
// development logger otherwise. The logger is also installed as zap's global.
func New(env, service string) (*zap.Logger, error) {
	var (
		log *zap.Logger
		err error
	)
	if env == "production" {
		log, err = zap.NewProduction()
	} else {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		log, err = cfg.Build()
	}
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("service", service))
	zap.ReplaceGlobals(log)
	return log, nil
}
