package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/tidwall/jsonc"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".marketplace"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// envGroups lists the config groups overridden from the environment. Every
// field tag carries its full MARKETPLACE_* name so envconfig never falls
// back to an unprefixed variable such as $NAME or $PATH.
func envGroups(cfg *Config) []any {
	return []any{
		&cfg.Network,
		&cfg.Identity,
		&cfg.Marketplace,
		&cfg.Messaging,
		&cfg.Journal,
		&cfg.Log,
	}
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("MARKETPLACE_CONFIG")); explicit != "" {
		return expandHome(explicit)
	}
	home, err := resolveHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

func resolveHomeDir() (string, error) {
	if h := strings.TrimSpace(os.Getenv("MARKETPLACE_HOME")); h != "" {
		if strings.HasPrefix(h, "~") {
			base, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(base, h[1:]), nil
		}
		return h, nil
	}
	return os.UserHomeDir()
}

// expandHome resolves a leading "~" against the marketplace home.
func expandHome(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := resolveHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, p[1:]), nil
}

// Load loads the configuration from file and environment variables.
// Priority: environment > env file > config file > defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Env file values only fill gaps in the process environment.
	LoadEnvFileCandidates()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil // Use defaults if we can't find config path
	}
	data, err := loadResolvedConfig(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	for _, group := range envGroups(cfg) {
		if err := envconfig.Process("", group); err != nil {
			return nil, fmt.Errorf("env overrides: %w", err)
		}
	}

	normalize(cfg)
	if cfg.Journal.Path, err = expandHome(cfg.Journal.Path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize lower-cases enum-like fields and restores defaults for
// values that would make the marketplace unusable.
func normalize(cfg *Config) {
	defaults := DefaultConfig()

	cfg.Messaging.Transport = strings.ToLower(strings.TrimSpace(cfg.Messaging.Transport))
	if cfg.Messaging.Transport == "" {
		cfg.Messaging.Transport = defaults.Messaging.Transport
	}
	if strings.TrimSpace(cfg.Messaging.TopicPrefix) == "" {
		cfg.Messaging.TopicPrefix = defaults.Messaging.TopicPrefix
	}
	if cfg.Messaging.KafkaPartitions <= 0 {
		cfg.Messaging.KafkaPartitions = defaults.Messaging.KafkaPartitions
	}
	if cfg.Messaging.KafkaReplication <= 0 {
		cfg.Messaging.KafkaReplication = defaults.Messaging.KafkaReplication
	}
	if cfg.Marketplace.DefaultLimit <= 0 {
		cfg.Marketplace.DefaultLimit = defaults.Marketplace.DefaultLimit
	}
	if strings.TrimSpace(cfg.Marketplace.DefaultToken) == "" {
		cfg.Marketplace.DefaultToken = defaults.Marketplace.DefaultToken
	}
	if cfg.Identity.DisclosureNonceTTL < 0 {
		cfg.Identity.DisclosureNonceTTL = 0
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Log.Level)) {
	case "debug", "info", "warn", "error":
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	default:
		cfg.Log.Level = defaults.Log.Level
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Log.Format)) {
	case "json":
		cfg.Log.Format = "json"
	default:
		cfg.Log.Format = "text"
	}
}

// Save writes the configuration to the config file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// EnsureDir ensures a directory exists with proper permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// loadResolvedConfig reads path as JSON with comments, follows "$include"
// entries and substitutes ${VAR} references from the environment.
func loadResolvedConfig(path string) ([]byte, error) {
	obj, err := loadConfigObject(path, map[string]struct{}{})
	if err != nil {
		return nil, err
	}
	if err := parseDurations(obj); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return json.Marshal(obj)
}

// durationFields are the "group.field" keys holding a time.Duration.
var durationFields = []string{"identity.disclosureNonceTtl"}

// parseDurations rewrites duration strings such as "10m" to the integer
// nanoseconds encoding/json expects for time.Duration.
func parseDurations(obj map[string]any) error {
	for _, field := range durationFields {
		group, key, _ := strings.Cut(field, ".")
		section, ok := obj[group].(map[string]any)
		if !ok {
			continue
		}
		raw, ok := section[key].(string)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		section[key] = int64(d)
	}
	return nil
}

func loadConfigObject(path string, visited map[string]struct{}) (map[string]any, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, seen := visited[absPath]; seen {
		return nil, fmt.Errorf("config include cycle detected at %s", absPath)
	}
	visited[absPath] = struct{}{}
	defer delete(visited, absPath)

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", absPath, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	merged := map[string]any{}
	if includeRaw, ok := raw["$include"]; ok {
		includeFiles, err := parseIncludes(includeRaw)
		if err != nil {
			return nil, err
		}
		baseDir := filepath.Dir(absPath)
		for _, includePath := range includeFiles {
			if !filepath.IsAbs(includePath) {
				includePath = filepath.Join(baseDir, includePath)
			}
			child, err := loadConfigObject(includePath, visited)
			if err != nil {
				return nil, err
			}
			deepMerge(merged, child)
		}
	}
	delete(raw, "$include")
	substituteEnvValues(raw)
	deepMerge(merged, raw)
	return merged, nil
}

func parseIncludes(v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		return []string{t}, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("$include entries must be strings")
			}
			if strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("$include must be a string or array of strings")
	}
}

func deepMerge(dst, src map[string]any) {
	for key, val := range src {
		srcMap, ok := val.(map[string]any)
		if !ok {
			dst[key] = val
			continue
		}
		dstMap, ok := dst[key].(map[string]any)
		if !ok {
			dstMap = map[string]any{}
			dst[key] = dstMap
		}
		deepMerge(dstMap, srcMap)
	}
}

func substituteEnvValues(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = substituteEnvValues(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = substituteEnvValues(item)
		}
		return t
	case string:
		return envPattern.ReplaceAllStringFunc(t, func(match string) string {
			name := envPattern.FindStringSubmatch(match)[1]
			if value, ok := os.LookupEnv(name); ok {
				return value
			}
			return match
		})
	default:
		return v
	}
}
