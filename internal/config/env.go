package config

import (
	"os"
	"strconv"
	"time"
)

// EnvOrDefault returns the value of the environment variable if set, otherwise the fallback.
func EnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// EnvIntOrDefault returns the int value of the environment variable if set and valid, otherwise the fallback.
func EnvIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvString, getEnvInt, getEnvInt64 and getEnvDuration are unexported
// helpers used internally by Config.New; getEnvString and getEnvInt delegate
// to the exported Env*OrDefault helpers above.
func getEnvString(key, defaultValue string) string {
	return EnvOrDefault(key, defaultValue)
}

func getEnvInt(key string, defaultValue int) int {
	return EnvIntOrDefault(key, defaultValue)
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if v, exists := os.LookupEnv(key); exists {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
