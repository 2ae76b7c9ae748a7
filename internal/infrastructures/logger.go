package infrastructures

import (
	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger

func init() {
	logger = logrus.StandardLogger()
	logger.SetFormatter(&logrus.JSONFormatter{})
}

// GetLogger returns the global logger instance
func GetLogger() *logrus.Logger {
	return logger
}

// ConfigureLogger applies the configured level. Unknown levels fall back to info.
func ConfigureLogger(config *AppConfig) *logrus.Logger {
	level, err := logrus.ParseLevel(config.LOG_LEVEL)
	if err != nil {
		logger.Warnf("unknown LOG_LEVEL %q, using info", config.LOG_LEVEL)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
