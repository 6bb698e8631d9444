package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/opspawn/hedera-apex-marketplace/internal/clock"
)

// KafkaOptions configures a KafkaTransport.
type KafkaOptions struct {
	Brokers           []string
	Prefix            string
	Partitions        int
	ReplicationFactor int
	Timeout           time.Duration
	Clock             clock.Clock
}

// KafkaTransport maps channels to Kafka topics. Channels are created with
// the admin API and task requests are produced with a shared writer.
type KafkaTransport struct {
	opts   KafkaOptions
	client *kafka.Client
	writer *kafka.Writer
}

// NewKafkaTransport validates opts and builds the client and writer. No
// connection is made until the first call.
func NewKafkaTransport(opts KafkaOptions) (*KafkaTransport, error) {
	if len(opts.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if opts.Partitions <= 0 {
		opts.Partitions = 1
	}
	if opts.ReplicationFactor <= 0 {
		opts.ReplicationFactor = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	return &KafkaTransport{
		opts: opts,
		client: &kafka.Client{
			Addr:    kafka.TCP(opts.Brokers...),
			Timeout: opts.Timeout,
		},
		writer: &kafka.Writer{
			Addr:         kafka.TCP(opts.Brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: opts.Timeout,
		},
	}, nil
}

// CreateChannel creates the topic for memo. An existing topic is reused.
func (t *KafkaTransport) CreateChannel(ctx context.Context, memo string) (string, error) {
	topic := ChannelName(t.opts.Prefix, memo)
	resp, err := t.client.CreateTopics(ctx, &kafka.CreateTopicsRequest{
		Topics: []kafka.TopicConfig{{
			Topic:             topic,
			NumPartitions:     t.opts.Partitions,
			ReplicationFactor: t.opts.ReplicationFactor,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("create topic %s: %w", topic, err)
	}
	if terr := resp.Errors[topic]; terr != nil && !errors.Is(terr, kafka.TopicAlreadyExists) {
		return "", fmt.Errorf("create topic %s: %w", topic, terr)
	}
	slog.Debug("Kafka channel ready", "topic", topic, "memo", memo)
	return topic, nil
}

// SendTaskRequest produces req to channelRef keyed by task id.
func (t *KafkaTransport) SendTaskRequest(ctx context.Context, channelRef string, req TaskRequest) (Ack, error) {
	now := t.opts.Clock.Now()
	value, err := encodeTaskRequest(req, now)
	if err != nil {
		return Ack{}, err
	}
	msg := kafka.Message{
		Topic:   channelRef,
		Key:     []byte(req.TaskID),
		Value:   value,
		Headers: []kafka.Header{{Key: "type", Value: []byte(EnvelopeTaskRequest)}},
		Time:    now,
	}
	if err := t.writer.WriteMessages(ctx, msg); err != nil {
		return Ack{}, fmt.Errorf("produce task %s to %s: %w", req.TaskID, channelRef, err)
	}
	return Ack{ChannelRef: channelRef, MessageID: req.TaskID, Timestamp: now}, nil
}

// Close flushes and closes the writer.
func (t *KafkaTransport) Close() error {
	return t.writer.Close()
}
