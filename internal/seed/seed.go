// Package seed loads agent catalogs from YAML and registers them with the
// marketplace.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/opspawn/hedera-apex-marketplace/internal/marketplace"
)

//go:embed default.yaml
var defaultCatalog []byte

// ErrEmptyCatalog is returned when a catalog lists no agents.
var ErrEmptyCatalog = errors.New("seed: catalog has no agents")

// Catalog is a set of registrations.
type Catalog struct {
	Agents []marketplace.Registration `yaml:"agents"`
}

// Default returns the built-in demo catalog.
func Default() (Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return Catalog{}, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a YAML catalog. Unknown keys are rejected.
func Parse(data []byte) (Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.Agents) == 0 {
		return Catalog{}, ErrEmptyCatalog
	}
	return c, nil
}

// Registrar is the part of the orchestrator Apply needs.
type Registrar interface {
	RegisterAgent(ctx context.Context, reg marketplace.Registration) (*marketplace.RegistrationResult, error)
}

// Apply registers every agent in c. A failing agent is logged and skipped;
// the joined errors are returned with the results that succeeded.
func Apply(ctx context.Context, r Registrar, c Catalog) ([]*marketplace.RegistrationResult, error) {
	var results []*marketplace.RegistrationResult
	var errs []error
	for _, reg := range c.Agents {
		res, err := r.RegisterAgent(ctx, reg)
		if err != nil {
			slog.Warn("Seed registration failed", "agent", reg.Name, "error", err)
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}
