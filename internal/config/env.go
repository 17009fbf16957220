// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
	"github.com/ManuGH/chatgate/internal/log"
)

// isSensitiveKey reports whether the value of key must never be logged.
func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, word := range []string{"password", "token", "secret", "api_key", "hmac_key"} {
		if strings.Contains(k, word) {
			return true
		}
	}
	return false
}

func logEnv(logger zerolog.Logger, key string, value any) {
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if isSensitiveKey(key) {
		ev = ev.Bool("sensitive", true)
	} else {
		ev = ev.Interface("value", value)
	}
	ev.Msg("using environment variable")
}

func logDefault(logger zerolog.Logger, key string, def any, reason string) {
	ev := logger.Debug().Str("key", key).Str("source", "default")
	if !isSensitiveKey(key) {
		ev = ev.Interface("default", def)
	}
	ev.Msg(reason)
}

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	switch {
	case !ok:
		logDefault(logger, key, defaultValue, "using default value")
		return defaultValue
	case v == "":
		logDefault(logger, key, defaultValue, "using default value (environment variable is empty)")
		return defaultValue
	}
	logEnv(logger, key, v)
	return v
}

// ParseInt reads an integer from environment variable or returns default value.
// It falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logDefault(logger, key, defaultValue, "using default value")
		return defaultValue
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Int("default", defaultValue).
			Msg("invalid integer in environment variable, using default")
		return defaultValue
	}
	logEnv(logger, key, i)
	return i
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logDefault(logger, key, defaultValue, "using default value")
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Float64("default", defaultValue).
			Msg("invalid float in environment variable, using default")
		return defaultValue
	}
	logEnv(logger, key, f)
	return f
}

// ParseDuration reads a duration in Go format ("5s"). A bare integer is
// taken as seconds.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logDefault(logger, key, defaultValue, "using default value")
		return defaultValue
	}
	v = strings.TrimSpace(v)
	if secs, err := strconv.Atoi(v); err == nil {
		d := time.Duration(secs) * time.Second
		logEnv(logger, key, d)
		return d
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Dur("default", defaultValue).
			Msg("invalid duration in environment variable, using default")
		return defaultValue
	}
	logEnv(logger, key, d)
	return d
}

// ParseBool reads a boolean from environment variable or returns default value.
// It accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logDefault(logger, key, defaultValue, "using default value")
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		logEnv(logger, key, true)
		return true
	case "false", "0", "no":
		logEnv(logger, key, false)
		return false
	}
	logger.Warn().
		Str("key", key).
		Str("value", v).
		Bool("default", defaultValue).
		Msg("invalid boolean in environment variable, using default")
	return defaultValue
}

// ParseStringList reads a comma-separated list. Blank items are dropped.
func ParseStringList(key string, defaultValue []string) []string {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		logDefault(logger, key, defaultValue, "using default value")
		return defaultValue
	}
	out := splitList(v, ",")
	logEnv(logger, key, out)
	return out
}

// ParseHeaders reads "Name:Value;Name:Value" pairs.
func ParseHeaders(key string, defaultValue []model.CustomHeader) []model.CustomHeader {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		logDefault(logger, key, len(defaultValue), "using default value")
		return defaultValue
	}
	var out []model.CustomHeader
	for _, pair := range splitList(v, ";") {
		name, value, found := strings.Cut(pair, ":")
		if !found || strings.TrimSpace(name) == "" {
			logger.Warn().Str("key", key).Msg("ignoring malformed header entry, expected Name:Value")
			continue
		}
		out = append(out, model.CustomHeader{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
	}
	logger.Debug().Str("key", key).Int("headers", len(out)).Str("source", "environment").Msg("using environment variable")
	return out
}

func splitList(s, sep string) []string {
	var out []string
	for _, item := range strings.Split(s, sep) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
