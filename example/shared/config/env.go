package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv loads a .env file from the working directory into the process environment.
// A missing file is not an error, the system environment is used as is.
// Variables that are already set are never overwritten.
func LoadEnv(logger *slog.Logger, filenames ...string) {
	if err := godotenv.Load(filenames...); err != nil {
		logger.Info("no .env file found, using the system environment")
		return
	}

	logger.Info(".env file loaded")
}

// GetEnv returns the value of the environment variable key, or the first default value
// if the variable is not set.
func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if !exists && len(defaultValue) > 0 {
		return defaultValue[0]
	}

	return value
}

// GetEnvBool returns the environment variable key parsed as bool, or defaultValue if it
// is unset or unparsable.
func GetEnvBool(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

// GetEnvDuration returns the environment variable key parsed with time.ParseDuration,
// or defaultValue if it is unset or unparsable.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}
