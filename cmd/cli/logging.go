package cli

import (
	"fmt"

	"go.uber.org/zap"
)

const (
	logFormatStructuredConstant      = "structured"
	logFormatConsoleConstant         = "console"
	logLevelParseTemplateConstant    = "invalid log level %q: %w"
	logFormatMessageTemplateConstant = "invalid log format %q (expected %s or %s)"
)

func newApplicationLogger(logLevel string, logFormat string) (*zap.Logger, error) {
	parsedLevel, levelError := zap.ParseAtomicLevel(logLevel)
	if levelError != nil {
		return nil, fmt.Errorf(logLevelParseTemplateConstant, logLevel, levelError)
	}

	var loggerConfiguration zap.Config
	switch logFormat {
	case logFormatStructuredConstant:
		loggerConfiguration = zap.NewProductionConfig()
	case logFormatConsoleConstant:
		loggerConfiguration = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf(logFormatMessageTemplateConstant, logFormat, logFormatStructuredConstant, logFormatConsoleConstant)
	}

	loggerConfiguration.Level = parsedLevel
	return loggerConfiguration.Build()
}
