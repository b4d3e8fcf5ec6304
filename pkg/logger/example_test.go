package logger_test

import (
	"errors"

	"github.com/wonny/supplycast/pkg/config"
	"github.com/wonny/supplycast/pkg/logger"
)

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	}

	log := logger.New(cfg)

	runLog := log.WithFields(map[string]interface{}{
		"execute_id": "b3f0c2",
		"algorithm":  "ALGO_02",
		"supplier":   1234,
	})
	runLog.Info("forecast computed")

	err := errors.New("connection refused")
	log.WithError(err).Error("upstream unreachable")
	// {"level":"info","env":"production","execute_id":"b3f0c2","algorithm":"ALGO_02","supplier":1234,"message":"forecast computed"}
}

// Example_component demonstrates deriving a component logger
func Example_component() {
	cfg := &config.Config{Env: "development", LogLevel: "debug", LogFormat: "console"}
	log := logger.New(cfg)

	compLog := logger.Component(log.Zerolog(), "pipeline.compute")
	compLog.Info().Int("items", 3).Msg("batch started")
}
