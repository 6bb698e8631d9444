// Package config provides configuration types and loading for the marketplace.
package config

import "time"

// Config is the root configuration struct.
// Top-level groups: Network, Identity, Marketplace, Messaging, Journal, Log.
type Config struct {
	Network     NetworkConfig     `json:"network"`
	Identity    IdentityConfig    `json:"identity"`
	Marketplace MarketplaceConfig `json:"marketplace"`
	Messaging   MessagingConfig   `json:"messaging"`
	Journal     JournalConfig     `json:"journal"`
	Log         LogConfig         `json:"log"`
}

// ---------------------------------------------------------------------------
// Network – ledger network identity
// ---------------------------------------------------------------------------

// NetworkConfig names the network DIDs are derived for.
type NetworkConfig struct {
	Name      string `json:"name" envconfig:"MARKETPLACE_NETWORK_NAME"`
	IssuerDID string `json:"issuerDid" envconfig:"MARKETPLACE_NETWORK_ISSUER_DID"`
}

// ---------------------------------------------------------------------------
// Identity – registry behaviour
// ---------------------------------------------------------------------------

// IdentityConfig groups identity registry settings.
type IdentityConfig struct {
	DisclosureNonceTTL time.Duration `json:"disclosureNonceTtl" envconfig:"MARKETPLACE_IDENTITY_DISCLOSURE_NONCE_TTL"`
	HandleShard        int64         `json:"handleShard" envconfig:"MARKETPLACE_IDENTITY_HANDLE_SHARD"`
	HandleRealm        int64         `json:"handleRealm" envconfig:"MARKETPLACE_IDENTITY_HANDLE_REALM"`
	HandleStart        uint64        `json:"handleStart" envconfig:"MARKETPLACE_IDENTITY_HANDLE_START"`
}

// ---------------------------------------------------------------------------
// Marketplace – orchestration defaults
// ---------------------------------------------------------------------------

// MarketplaceConfig groups registration and discovery defaults.
type MarketplaceConfig struct {
	DefaultLimit       int    `json:"defaultLimit" envconfig:"MARKETPLACE_MARKETPLACE_DEFAULT_LIMIT"`
	RegistrationPoints int    `json:"registrationPoints" envconfig:"MARKETPLACE_MARKETPLACE_REGISTRATION_POINTS"`
	DefaultToken       string `json:"defaultToken" envconfig:"MARKETPLACE_MARKETPLACE_DEFAULT_TOKEN"`
}

// ---------------------------------------------------------------------------
// Messaging – channel transport
// ---------------------------------------------------------------------------

// MessagingConfig selects and configures the channel transport.
type MessagingConfig struct {
	Transport        string `json:"transport" envconfig:"MARKETPLACE_MESSAGING_TRANSPORT"` // memory, kafka, nats
	TopicPrefix      string `json:"topicPrefix" envconfig:"MARKETPLACE_MESSAGING_TOPIC_PREFIX"`
	KafkaBrokers     string `json:"kafkaBrokers" envconfig:"MARKETPLACE_MESSAGING_KAFKA_BROKERS"`
	KafkaPartitions  int    `json:"kafkaPartitions" envconfig:"MARKETPLACE_MESSAGING_KAFKA_PARTITIONS"`
	KafkaReplication int    `json:"kafkaReplication" envconfig:"MARKETPLACE_MESSAGING_KAFKA_REPLICATION"`
	NATSURL          string `json:"natsUrl" envconfig:"MARKETPLACE_MESSAGING_NATS_URL"`
}

// ---------------------------------------------------------------------------
// Journal – audit persistence
// ---------------------------------------------------------------------------

// JournalConfig configures the SQLite audit journal.
type JournalConfig struct {
	Enabled bool   `json:"enabled" envconfig:"MARKETPLACE_JOURNAL_ENABLED"`
	Path    string `json:"path" envconfig:"MARKETPLACE_JOURNAL_DB_PATH"`
}

// ---------------------------------------------------------------------------
// Log
// ---------------------------------------------------------------------------

// LogConfig controls the slog handler installed by the CLI.
type LogConfig struct {
	Level  string `json:"level" envconfig:"MARKETPLACE_LOG_LEVEL"`   // debug, info, warn, error
	Format string `json:"format" envconfig:"MARKETPLACE_LOG_FORMAT"` // text, json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Network: NetworkConfig{
			Name:      "testnet",
			IssuerDID: "did:hedera:testnet:marketplace",
		},
		Identity: IdentityConfig{
			DisclosureNonceTTL: 5 * time.Minute,
			HandleShard:        0,
			HandleRealm:        0,
			HandleStart:        1001,
		},
		Marketplace: MarketplaceConfig{
			DefaultLimit:       50,
			RegistrationPoints: 10,
			DefaultToken:       "HBAR",
		},
		Messaging: MessagingConfig{
			Transport:        "memory",
			TopicPrefix:      "marketplace",
			KafkaBrokers:     "localhost:9092",
			KafkaPartitions:  1,
			KafkaReplication: 1,
			NATSURL:          "nats://127.0.0.1:4222",
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    "~/.marketplace/journal.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
