package messaging

import (
	"errors"
	"testing"
)

func TestNew_DefaultsToMemory(t *testing.T) {
	tr, err := New(Options{TopicPrefix: "mkt"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := tr.(*MemoryTransport); !ok {
		t.Errorf("expected *MemoryTransport, got %T", tr)
	}
}

func TestNew_UnknownTransport(t *testing.T) {
	_, err := New(Options{Transport: "carrier-pigeon"})
	if !errors.Is(err, ErrUnknownTransport) {
		t.Errorf("expected ErrUnknownTransport, got %v", err)
	}
}

func TestNew_KafkaRequiresBrokers(t *testing.T) {
	_, err := New(Options{Transport: TransportKafka, KafkaBrokers: " , "})
	if !errors.Is(err, ErrNoBrokers) {
		t.Errorf("expected ErrNoBrokers, got %v", err)
	}
}

func TestNew_KafkaBuildsWithoutDialing(t *testing.T) {
	tr, err := New(Options{Transport: "Kafka", KafkaBrokers: "localhost:9092, localhost:9093"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	kt, ok := tr.(*KafkaTransport)
	if !ok {
		t.Fatalf("expected *KafkaTransport, got %T", tr)
	}
	if len(kt.opts.Brokers) != 2 || kt.opts.Brokers[1] != "localhost:9093" {
		t.Errorf("unexpected brokers %v", kt.opts.Brokers)
	}
	if kt.opts.Partitions != 1 || kt.opts.ReplicationFactor != 1 {
		t.Errorf("expected partition/replication defaults, got %d/%d", kt.opts.Partitions, kt.opts.ReplicationFactor)
	}
	if err := kt.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}
