package core

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Typed environment lookups used by LoadConfig. Unset, empty and
// unparseable values all fall back to the given default; configuration
// problems surface later through Config.Validate rather than here.

// lookupEnv reports the trimmed value of key and whether it is usable.
func lookupEnv(key string) (string, bool) {
	value := strings.TrimSpace(os.Getenv(key))
	return value, value != ""
}

// GetEnvOrDefault returns the environment variable's value, or def when
// the variable is unset or empty.
func GetEnvOrDefault(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}

// ParseIntEnv reads an integer-valued environment variable.
func ParseIntEnv(key string, def int) int {
	value, ok := lookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return n
}

// ParseInt64Env reads an int64-valued environment variable. Byte-count
// settings use this so they are not clipped on 32-bit builds.
func ParseInt64Env(key string, def int64) int64 {
	value, ok := lookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return n
}

// ParseFloat64Env reads a float-valued environment variable.
func ParseFloat64Env(key string, def float64) float64 {
	value, ok := lookupEnv(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return f
}

// ParseBoolEnv reads a boolean-valued environment variable. It accepts
// true/false, 1/0, yes/no and on/off in any case.
func ParseBoolEnv(key string, def bool) bool {
	value, ok := lookupEnv(key)
	if !ok {
		return def
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return def
}

// ParseDurationEnv reads an environment variable holding a whole number
// of seconds, matching how the *_SECONDS settings are expressed.
func ParseDurationEnv(key string, defSeconds int) time.Duration {
	return time.Duration(ParseIntEnv(key, defSeconds)) * time.Second
}
