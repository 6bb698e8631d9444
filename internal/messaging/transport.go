package messaging

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/opspawn/hedera-apex-marketplace/internal/clock"
)

// Options selects and configures a transport.
type Options struct {
	Transport        string
	TopicPrefix      string
	KafkaBrokers     string // comma separated
	KafkaPartitions  int
	KafkaReplication int
	NATSURL          string
	Clock            clock.Clock
}

// New builds the transport named by opts.Transport. An empty name selects
// the memory transport.
func New(opts Options) (Transport, error) {
	switch strings.ToLower(opts.Transport) {
	case "", TransportMemory:
		return NewMemoryTransport(opts.TopicPrefix, opts.Clock), nil
	case TransportKafka:
		t, err := NewKafkaTransport(KafkaOptions{
			Brokers:           splitBrokers(opts.KafkaBrokers),
			Prefix:            opts.TopicPrefix,
			Partitions:        opts.KafkaPartitions,
			ReplicationFactor: opts.KafkaReplication,
			Clock:             opts.Clock,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("Messaging transport", "kind", TransportKafka, "brokers", opts.KafkaBrokers)
		return t, nil
	case TransportNATS:
		t, err := NewNATSTransport(NATSOptions{URL: opts.NATSURL, Prefix: opts.TopicPrefix, Clock: opts.Clock})
		if err != nil {
			return nil, err
		}
		slog.Info("Messaging transport", "kind", TransportNATS, "url", opts.NATSURL)
		return t, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, opts.Transport)
}

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
