package config

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// EnvPrefix marks the variables an env file may set.
const EnvPrefix = "MARKETPLACE_"

// envFilePaths lists env files in precedence order: $MARKETPLACE_ENV_FILE,
// then ~/.config/marketplace/env, then ~/.marketplace/env.
func envFilePaths() []string {
	var paths []string
	if explicit := strings.TrimSpace(os.Getenv(EnvPrefix + "ENV_FILE")); explicit != "" {
		if abs, err := filepath.Abs(explicit); err == nil {
			explicit = abs
		}
		paths = append(paths, explicit)
	}
	if home, err := os.UserHomeDir(); err == nil {
		for _, p := range []string{
			filepath.Join(home, ".config", "marketplace", "env"),
			filepath.Join(home, ConfigDir, "env"),
		} {
			if len(paths) == 0 || paths[0] != p {
				paths = append(paths, p)
			}
		}
	}
	return paths
}

// LoadEnvFileCandidates applies every readable env file in precedence order.
// A variable already present in the process environment, or set by an
// earlier file, keeps its value.
func LoadEnvFileCandidates() {
	for _, p := range envFilePaths() {
		n, err := applyEnvFile(p)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			slog.Warn("Env file skipped", "path", p, "error", err)
		case n > 0:
			slog.Debug("Env file applied", "path", p, "vars", n)
		}
	}
}

func applyEnvFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	vars, err := parseEnvFile(f)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	applied := 0
	for key, val := range vars {
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, val); err != nil {
			return applied, fmt.Errorf("set %s: %w", key, err)
		}
		applied++
	}
	return applied, nil
}

// parseEnvFile reads KEY=value lines. Blank lines and '#' comments are
// skipped, as are keys outside the MARKETPLACE_ namespace. A value wrapped
// in matching single or double quotes is unwrapped.
func parseEnvFile(r io.Reader) (map[string]string, error) {
	vars := map[string]string{}
	sc := bufio.NewScanner(r)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || !strings.HasPrefix(key, EnvPrefix) || strings.ContainsAny(key, " \t") {
			slog.Debug("Env file line ignored", "line", lineNo)
			continue
		}
		vars[key] = unquote(strings.TrimSpace(val))
	}
	return vars, sc.Err()
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}
