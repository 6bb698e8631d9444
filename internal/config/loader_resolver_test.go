package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadResolvedConfigIncludesAndSubstitutes(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.json")
	if err := os.WriteFile(base, []byte(`{
  // shared broker settings
  "messaging": {"transport": "kafka", "kafkaBrokers": "base:9092", "kafkaPartitions": 3}
}`), 0o600); err != nil {
		t.Fatalf("write base: %v", err)
	}
	main := filepath.Join(dir, "config.json")
	if err := os.WriteFile(main, []byte(`{
  "$include": "base.json",
  "messaging": {"kafkaBrokers": "${TEST_MARKET_BROKERS}"}
}`), 0o600); err != nil {
		t.Fatalf("write main: %v", err)
	}
	t.Setenv("TEST_MARKET_BROKERS", "env:9092")

	data, err := loadResolvedConfig(main)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got := string(data)
	for _, want := range []string{`"kafkaBrokers":"env:9092"`, `"kafkaPartitions":3`, `"transport":"kafka"`} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %s in %s", want, got)
		}
	}
	if strings.Contains(got, "$include") {
		t.Fatalf("include key leaked: %s", got)
	}
}

func TestLoadResolvedConfigDetectsCycles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.json")
	if err := os.WriteFile(a, []byte(`{"$include": "b.json"}`), 0o600); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.WriteFile(b, []byte(`{"$include": ["a.json"]}`), 0o600); err != nil {
		t.Fatalf("write b: %v", err)
	}

	_, err := loadResolvedConfig(a)
	if err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestParseIncludesRejectsNonStrings(t *testing.T) {
	if _, err := parseIncludes([]any{"ok.json", 3.0}); err == nil {
		t.Fatal("expected error for non-string entry")
	}
	if _, err := parseIncludes(true); err == nil {
		t.Fatal("expected error for bool include")
	}
	got, err := parseIncludes("  ")
	if err != nil || got != nil {
		t.Fatalf("expected empty include to be ignored, got %v %v", got, err)
	}
}

func TestSubstituteEnvValuesLeavesUnknownVars(t *testing.T) {
	os.Unsetenv("TEST_MARKET_UNSET")
	got := substituteEnvValues("${TEST_MARKET_UNSET}/x")
	if got != "${TEST_MARKET_UNSET}/x" {
		t.Fatalf("expected placeholder kept, got %v", got)
	}
}

func TestLoadAcceptsDurationStrings(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, `{"identity": {"disclosureNonceTtl": "10m"}}`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Identity.DisclosureNonceTTL != 10*time.Minute {
		t.Fatalf("expected 10m ttl, got %v", cfg.Identity.DisclosureNonceTTL)
	}

	writeConfig(t, home, `{"identity": {"disclosureNonceTtl": 90000000000}}`)
	cfg, err = Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Identity.DisclosureNonceTTL != 90*time.Second {
		t.Fatalf("expected nanosecond value kept, got %v", cfg.Identity.DisclosureNonceTTL)
	}

	writeConfig(t, home, `{"identity": {"disclosureNonceTtl": "soon"}}`)
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed duration")
	}
}
