// Package messaging implements the marketplace's channel transport: channel
// naming, the topic registry manifest, and memory, Kafka and NATS
// transports that carry task requests to agents.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Transport kinds accepted by New.
const (
	TransportMemory = "memory"
	TransportKafka  = "kafka"
	TransportNATS   = "nats"
)

// Envelope type constants.
const (
	EnvelopeTaskRequest = "task_request"
	EnvelopeChannelOpen = "channel_open"
)

var (
	ErrChannelNotFound  = errors.New("messaging: channel not found")
	ErrUnknownTransport = errors.New("messaging: unknown transport")
	ErrNoBrokers        = errors.New("messaging: no brokers configured")
	ErrClosed           = errors.New("messaging: transport closed")
)

// Transport creates channels and delivers task requests on them.
type Transport interface {
	// CreateChannel opens a channel for memo and returns its reference.
	// Creating an existing channel returns the same reference.
	CreateChannel(ctx context.Context, memo string) (string, error)
	SendTaskRequest(ctx context.Context, channelRef string, req TaskRequest) (Ack, error)
	Close() error
}

// Envelope wraps every message written to a channel.
type Envelope struct {
	Type          string    `json:"type"`
	CorrelationID string    `json:"correlation_id"`
	SenderID      string    `json:"sender_id"`
	Timestamp     time.Time `json:"timestamp"`
	Payload       any       `json:"payload"`
}

// TaskRequest is sent to an agent's inbound channel when it is hired.
type TaskRequest struct {
	TaskID    string         `json:"task_id"`
	AgentID   string         `json:"agent_id"`
	SkillID   string         `json:"skill_id"`
	ClientID  string         `json:"client_id"`
	Input     map[string]any `json:"input,omitempty"`
	TaskTopic string         `json:"task_topic"`
	Amount    float64        `json:"amount,omitempty"`
	Token     string         `json:"token,omitempty"`
}

// Ack confirms that a message was accepted by the transport.
type Ack struct {
	ChannelRef string    `json:"channel_ref"`
	MessageID  string    `json:"message_id"`
	Sequence   int64     `json:"sequence"`
	Timestamp  time.Time `json:"timestamp"`
}

func encodeTaskRequest(req TaskRequest, now time.Time) ([]byte, error) {
	env := Envelope{
		Type:          EnvelopeTaskRequest,
		CorrelationID: req.TaskID,
		SenderID:      req.ClientID,
		Timestamp:     now,
		Payload:       req,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal task request %s: %w", req.TaskID, err)
	}
	return data, nil
}

// DecodeTaskRequest parses an envelope produced by any transport.
func DecodeTaskRequest(data []byte) (Envelope, TaskRequest, error) {
	var raw struct {
		Envelope
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Envelope{}, TaskRequest{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if raw.Type != EnvelopeTaskRequest {
		return Envelope{}, TaskRequest{}, fmt.Errorf("unexpected envelope type %q", raw.Type)
	}
	var req TaskRequest
	if err := json.Unmarshal(raw.Payload, &req); err != nil {
		return Envelope{}, TaskRequest{}, fmt.Errorf("unmarshal task request: %w", err)
	}
	env := raw.Envelope
	env.Payload = req
	return env, req, nil
}
