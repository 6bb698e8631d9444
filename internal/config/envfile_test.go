package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseEnvFileKeepsMarketplaceKeysOnly(t *testing.T) {
	content := `
# comment
MARKETPLACE_LOG_LEVEL=debug
MARKETPLACE_NETWORK_NAME="hedera mainnet"
  MARKETPLACE_MESSAGING_NATS_URL = 'nats://localhost:4222'
PATH=/tmp/evil
export MARKETPLACE_LOG_FORMAT=json
INVALID_LINE
=novalue
`
	vars, err := parseEnvFile(strings.NewReader(content))
	if err != nil {
		t.Fatalf("parse env file: %v", err)
	}
	want := map[string]string{
		"MARKETPLACE_LOG_LEVEL":          "debug",
		"MARKETPLACE_NETWORK_NAME":       "hedera mainnet",
		"MARKETPLACE_MESSAGING_NATS_URL": "nats://localhost:4222",
	}
	if len(vars) != len(want) {
		t.Fatalf("expected %d vars, got %v", len(want), vars)
	}
	for k, v := range want {
		if vars[k] != v {
			t.Fatalf("%s = %q, want %q", k, vars[k], v)
		}
	}
}

func TestApplyEnvFileRespectsExistingValues(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), "env")
	content := "MARKETPLACE_LOG_LEVEL=debug\nMARKETPLACE_LOG_FORMAT=json\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("MARKETPLACE_LOG_LEVEL", "warn")
	t.Setenv("MARKETPLACE_LOG_FORMAT", "")
	os.Unsetenv("MARKETPLACE_LOG_FORMAT")

	n, err := applyEnvFile(envPath)
	if err != nil {
		t.Fatalf("apply env file: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 applied var, got %d", n)
	}
	if got := os.Getenv("MARKETPLACE_LOG_LEVEL"); got != "warn" {
		t.Fatalf("expected existing level preserved, got %q", got)
	}
	if got := os.Getenv("MARKETPLACE_LOG_FORMAT"); got != "json" {
		t.Fatalf("expected format loaded, got %q", got)
	}
}

func TestApplyEnvFileMissing(t *testing.T) {
	if _, err := applyEnvFile(filepath.Join(t.TempDir(), "absent")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestLoadUsesEnvFileCandidate(t *testing.T) {
	home := isolate(t)
	envDir := filepath.Join(home, ".config", "marketplace")
	if err := os.MkdirAll(envDir, 0o755); err != nil {
		t.Fatalf("mkdir env dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(envDir, "env"), []byte("MARKETPLACE_MARKETPLACE_DEFAULT_LIMIT=12\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Marketplace.DefaultLimit != 12 {
		t.Fatalf("expected default limit from env file, got %d", cfg.Marketplace.DefaultLimit)
	}
}

func TestLoadEnvFileCandidatesFromExplicitPath(t *testing.T) {
	isolate(t)
	envPath := filepath.Join(t.TempDir(), "market.env")
	if err := os.WriteFile(envPath, []byte("MARKETPLACE_LOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("MARKETPLACE_ENV_FILE", envPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected debug level from explicit env file, got %q", cfg.Log.Level)
	}
}

func TestUnquote(t *testing.T) {
	cases := map[string]string{`"a"`: "a", `'b'`: "b", `"c'`: `"c'`, `x`: "x", `"`: `"`, `""`: ""}
	for in, want := range cases {
		if got := unquote(in); got != want {
			t.Fatalf("unquote(%q) = %q, want %q", in, got, want)
		}
	}
}
