package main

import (
	"fmt"
	"os"

	"github.com/agentscan/agentscan/pkg/logger"
)

const (
	// LogFileEnvVar overrides the log file path when no flag is given.
	LogFileEnvVar = "LOG_FILE"
	// LogLevelEnvVar overrides the log level when no flag is given.
	LogLevelEnvVar = "LOG_LEVEL"
	// LogFormatEnvVar overrides the log format when no flag is given.
	LogFormatEnvVar = "LOG_FORMAT"
)

// initLoggerFromCLI installs the process logger from CLI flags and
// environment variables. Priority: CLI flags > env vars > defaults. The
// returned cleanup closes the log file, if one was opened.
func initLoggerFromCLI(cliLogLevel, cliLogFile, cliLogFormat string) (func(), error) {
	logLevel := cliLogLevel
	if logLevel == "" {
		logLevel = os.Getenv(LogLevelEnvVar)
	}
	if logLevel == "" {
		logLevel = "info"
	}

	logFile := cliLogFile
	if logFile == "" {
		logFile = os.Getenv(LogFileEnvVar)
	}

	logFormat := cliLogFormat
	if logFormat == "" {
		logFormat = os.Getenv(LogFormatEnvVar)
	}
	if logFormat == "" {
		logFormat = "simple"
	}

	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	output := os.Stderr
	var cleanup func()
	if logFile != "" {
		file, cleanupFn, err := logger.OpenLogFile(logFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		cleanup = cleanupFn
	}

	logger.Init(level, output, logFormat)
	return cleanup, nil
}
