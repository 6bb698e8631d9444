package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/opspawn/hedera-apex-marketplace/internal/clock"
)

// NATSOptions configures a NATSTransport.
type NATSOptions struct {
	URL     string
	Prefix  string
	Name    string
	Timeout time.Duration
	Clock   clock.Clock
}

// NATSTransport maps channels to NATS subjects. Subjects need no creation;
// CreateChannel records the subject and announces it.
type NATSTransport struct {
	opts  NATSOptions
	conn  *nats.Conn
	mu    sync.RWMutex
	known map[string]bool
}

// NewNATSTransport connects to opts.URL.
func NewNATSTransport(opts NATSOptions) (*NATSTransport, error) {
	if opts.URL == "" {
		opts.URL = nats.DefaultURL
	}
	if opts.Name == "" {
		opts.Name = "marketplace"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	conn, err := nats.Connect(opts.URL, nats.Name(opts.Name), nats.Timeout(opts.Timeout))
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", opts.URL, err)
	}
	return &NATSTransport{opts: opts, conn: conn, known: make(map[string]bool)}, nil
}

// CreateChannel returns the subject for memo and publishes a channel-open
// envelope on it.
func (t *NATSTransport) CreateChannel(ctx context.Context, memo string) (string, error) {
	subject := ChannelName(t.opts.Prefix, memo)

	t.mu.Lock()
	seen := t.known[subject]
	t.known[subject] = true
	t.mu.Unlock()
	if seen {
		return subject, nil
	}

	msg := nats.NewMsg(subject)
	msg.Header.Set("type", EnvelopeChannelOpen)
	msg.Data = []byte(memo)
	if err := t.conn.PublishMsg(msg); err != nil {
		return "", fmt.Errorf("open subject %s: %w", subject, err)
	}
	if err := t.flush(ctx); err != nil {
		return "", fmt.Errorf("open subject %s: %w", subject, err)
	}
	slog.Debug("NATS channel ready", "subject", subject, "memo", memo)
	return subject, nil
}

// SendTaskRequest publishes req on channelRef and waits for the server to
// acknowledge the flush.
func (t *NATSTransport) SendTaskRequest(ctx context.Context, channelRef string, req TaskRequest) (Ack, error) {
	t.mu.RLock()
	known := t.known[channelRef]
	t.mu.RUnlock()
	if !known {
		return Ack{}, fmt.Errorf("send task %s to %s: %w", req.TaskID, channelRef, ErrChannelNotFound)
	}

	now := t.opts.Clock.Now()
	data, err := encodeTaskRequest(req, now)
	if err != nil {
		return Ack{}, err
	}
	msg := nats.NewMsg(channelRef)
	msg.Header.Set("type", EnvelopeTaskRequest)
	msg.Header.Set("task_id", req.TaskID)
	msg.Data = data
	if err := t.conn.PublishMsg(msg); err != nil {
		return Ack{}, fmt.Errorf("publish task %s to %s: %w", req.TaskID, channelRef, err)
	}
	if err := t.flush(ctx); err != nil {
		return Ack{}, fmt.Errorf("flush task %s to %s: %w", req.TaskID, channelRef, err)
	}
	return Ack{ChannelRef: channelRef, MessageID: req.TaskID, Timestamp: now}, nil
}

// flush round-trips to the server. FlushWithContext requires a deadline.
func (t *NATSTransport) flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}
	return t.conn.FlushWithContext(ctx)
}

// Close drains and closes the connection.
func (t *NATSTransport) Close() error {
	if err := t.conn.Drain(); err != nil {
		t.conn.Close()
		return err
	}
	return nil
}
