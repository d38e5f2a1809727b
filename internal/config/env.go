// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/vidsync/internal/log"
	"github.com/rs/zerolog"
)

func envLogger() zerolog.Logger {
	return log.WithComponent("config")
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, kw := range []string{"token", "password", "secret", "dsn", "access_key"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// lookup returns the raw env value and whether it should override the default.
// Empty values count as unset.
func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func logEnv(key, value string) {
	l := envLogger()
	ev := l.Debug().Str("key", key).Str("source", "environment")
	if isSensitiveKey(key) {
		ev.Bool("sensitive", true).Msg("using environment variable")
		return
	}
	ev.Str("value", value).Msg("using environment variable")
}

func logInvalid(key, value, kind string) {
	l := envLogger()
	l.Warn().
		Str("key", key).
		Str("value", value).
		Msgf("invalid %s in environment variable, using default", kind)
}

// ParseString reads a string from environment variable or returns default value.
func ParseString(key, defaultValue string) string {
	v, ok := lookup(key)
	if !ok {
		return defaultValue
	}
	logEnv(key, v)
	return v
}

// ParseInt reads an integer from environment variable or returns default value.
func ParseInt(key string, defaultValue int) int {
	v, ok := lookup(key)
	if !ok {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		logInvalid(key, v, "integer")
		return defaultValue
	}
	logEnv(key, v)
	return i
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	v, ok := lookup(key)
	if !ok {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logInvalid(key, v, "float")
		return defaultValue
	}
	logEnv(key, v)
	return f
}

// ParseDuration reads a duration in Go format (e.g. "5s") or returns default value.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	v, ok := lookup(key)
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logInvalid(key, v, "duration")
		return defaultValue
	}
	logEnv(key, v)
	return d
}

// ParseBool accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	v, ok := lookup(key)
	if !ok {
		return defaultValue
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		logEnv(key, v)
		return true
	case "false", "0", "no":
		logEnv(key, v)
		return false
	default:
		logInvalid(key, v, "boolean")
		return defaultValue
	}
}

// ParseList reads a comma separated list, trimming blanks.
func ParseList(key string, defaultValue []string) []string {
	v, ok := lookup(key)
	if !ok {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	logEnv(key, v)
	return out
}
