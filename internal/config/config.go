// Package config reads service configuration from the environment, with
// optional .env discovery for local development. Every fallback to a
// default is logged so a misconfigured deployment is visible at startup.
package config

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// String returns the value of key, or def with a warning when unset.
func String(log *zap.Logger, key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	log.Warn("env not set, using default", zap.String("key", key), zap.String("default", def))
	return def
}

// Optional returns the value of key, or empty without a warning. Use it
// for knobs that are genuinely off when unset.
func Optional(key string) string {
	return os.Getenv(key)
}

// Duration returns the value of key parsed as a time.Duration, or def
// when unset or unparsable.
func Duration(log *zap.Logger, key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn("invalid duration, using default",
			zap.String("key", key),
			zap.String("value", v),
			zap.Duration("default", def),
		)
		return def
	}
	return d
}

// CSV splits a comma-separated value into trimmed non-empty parts.
func CSV(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// LoadEnvFile finds the nearest .env walking up from the working
// directory and loads it. Variables already present in the environment
// win over file values.
func LoadEnvFile(log *zap.Logger) {
	path, err := findEnvFile()
	if err != nil {
		log.Warn("failed to locate .env", zap.Error(err))
		return
	}
	if path == "" {
		log.Debug(".env not found in current or parent directories")
		return
	}

	file, err := os.Open(path)
	if err != nil {
		log.Warn("failed to open env file", zap.String("path", path), zap.Error(err))
		return
	}
	defer file.Close()

	if err := parseEnvFile(log, file); err != nil {
		log.Warn("failed to load env file", zap.String("path", path), zap.Error(err))
		return
	}
	log.Info("loaded env file", zap.String("path", path))
}

func findEnvFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for i := 0; i < 6; i++ {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil
}

func parseEnvFile(log *zap.Logger, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\uFEFF")
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}
		value = trimQuotes(value)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			log.Warn("failed to set env from file", zap.String("key", key))
		}
	}
	return scanner.Err()
}

func trimQuotes(value string) string {
	if len(value) < 2 {
		return value
	}
	if (value[0] == '"' && value[len(value)-1] == '"') ||
		(value[0] == '\'' && value[len(value)-1] == '\'') {
		return value[1 : len(value)-1]
	}
	return value
}
