package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/opspawn/hedera-apex-marketplace/internal/artifacts"
	"github.com/opspawn/hedera-apex-marketplace/internal/clock"
	"github.com/opspawn/hedera-apex-marketplace/internal/config"
	"github.com/opspawn/hedera-apex-marketplace/internal/identity"
	"github.com/opspawn/hedera-apex-marketplace/internal/journal"
	"github.com/opspawn/hedera-apex-marketplace/internal/marketplace"
	"github.com/opspawn/hedera-apex-marketplace/internal/messaging"
	"github.com/opspawn/hedera-apex-marketplace/internal/reputation"
	"github.com/opspawn/hedera-apex-marketplace/internal/seed"
)

// marketRuntime is one fully wired marketplace for the lifetime of a
// command.
type marketRuntime struct {
	cfg       *config.Config
	registry  *identity.Registry
	transport messaging.Transport
	topics    *messaging.TopicManager
	skills    *artifacts.SkillRegistry
	ledger    *reputation.Ledger
	journal   *journal.Journal
	orch      *marketplace.Orchestrator
}

// loadConfig loads the config and installs the logger it describes.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	setupLogging(cfg.Log)
	return cfg, nil
}

func openJournal(cfg *config.Config) (*journal.Journal, error) {
	if err := config.EnsureDir(filepath.Dir(cfg.Journal.Path)); err != nil {
		return nil, fmt.Errorf("journal dir: %w", err)
	}
	return journal.Open(cfg.Journal.Path, clock.Real())
}

func newRuntime(cfg *config.Config) (*marketRuntime, error) {
	c := clock.Real()
	rt := &marketRuntime{cfg: cfg}

	if cfg.Journal.Enabled {
		j, err := openJournal(cfg)
		if err != nil {
			return nil, err
		}
		rt.journal = j
	}

	rt.registry = identity.NewRegistry(func(o *identity.Options) {
		o.Network = cfg.Network.Name
		o.IssuerDID = cfg.Network.IssuerDID
		o.HandleShard = cfg.Identity.HandleShard
		o.HandleRealm = cfg.Identity.HandleRealm
		o.HandleStart = cfg.Identity.HandleStart
		o.DisclosureNonceTTL = cfg.Identity.DisclosureNonceTTL
		o.Clock = c
		if rt.journal != nil {
			o.Auditor = rt.journal
		}
	})

	transport, err := messaging.New(messaging.Options{
		Transport:        cfg.Messaging.Transport,
		TopicPrefix:      cfg.Messaging.TopicPrefix,
		KafkaBrokers:     cfg.Messaging.KafkaBrokers,
		KafkaPartitions:  cfg.Messaging.KafkaPartitions,
		KafkaReplication: cfg.Messaging.KafkaReplication,
		NATSURL:          cfg.Messaging.NATSURL,
		Clock:            c,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.transport = transport

	builder := artifacts.NewBuilder(cfg.Network.Name)
	rt.topics = messaging.NewTopicManager(cfg.Messaging.TopicPrefix, c)
	rt.skills = artifacts.NewSkillRegistry(builder, rt.topics, c, "")
	rt.ledger = reputation.NewLedger(c)

	rt.orch = marketplace.New(rt.registry, func(o *marketplace.Options) {
		o.Messenger = transport
		o.Artifacts = builder
		o.Skills = rt.skills
		o.Reputation = rt.ledger
		o.Clock = c
		o.DefaultLimit = cfg.Marketplace.DefaultLimit
		o.RegistrationPoints = cfg.Marketplace.RegistrationPoints
		o.DefaultToken = cfg.Marketplace.DefaultToken
		if rt.journal != nil {
			o.Recorder = rt.journal
		}
	})
	return rt, nil
}

// seedCatalog registers the catalog at path, or the embedded default
// catalog when path is empty.
func (rt *marketRuntime) seedCatalog(ctx context.Context, path string) ([]*marketplace.RegistrationResult, error) {
	var (
		catalog seed.Catalog
		err     error
	)
	if path == "" {
		catalog, err = seed.Default()
	} else {
		catalog, err = seed.Load(path)
	}
	if err != nil {
		return nil, err
	}
	results, err := seed.Apply(ctx, rt.orch, catalog)
	if err != nil && len(results) == 0 {
		return nil, err
	}
	if err != nil {
		slog.Warn("Catalog partially applied", "registered", len(results), "error", err)
	}
	return results, nil
}

// Close releases the transport and journal.
func (rt *marketRuntime) Close() error {
	var errs []error
	if rt.transport != nil {
		errs = append(errs, rt.transport.Close())
	}
	if rt.journal != nil {
		errs = append(errs, rt.journal.Close())
	}
	return errors.Join(errs...)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
