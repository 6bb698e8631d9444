package messaging

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/opspawn/hedera-apex-marketplace/internal/clock"
)

// Delivered is a message as stored by the memory transport.
type Delivered struct {
	Ack     Ack
	Request TaskRequest
	Raw     []byte
}

type memChannel struct {
	memo     string
	messages []Delivered
}

// MemoryTransport keeps channels in process. It backs tests, the demo
// command and single-process deployments.
type MemoryTransport struct {
	prefix   string
	clock    clock.Clock
	mu       sync.RWMutex
	channels map[string]*memChannel
	order    []string
	subs     map[string][]func(Delivered)
	closed   bool
}

// NewMemoryTransport creates an empty in-process transport.
func NewMemoryTransport(prefix string, c clock.Clock) *MemoryTransport {
	if c == nil {
		c = clock.Real()
	}
	return &MemoryTransport{
		prefix:   prefix,
		clock:    c,
		channels: make(map[string]*memChannel),
		subs:     make(map[string][]func(Delivered)),
	}
}

// CreateChannel registers the channel for memo.
func (t *MemoryTransport) CreateChannel(ctx context.Context, memo string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := ChannelName(t.prefix, memo)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return "", ErrClosed
	}
	if _, ok := t.channels[ref]; !ok {
		t.channels[ref] = &memChannel{memo: memo}
		t.order = append(t.order, ref)
	}
	return ref, nil
}

// SendTaskRequest appends req to the channel and notifies subscribers.
func (t *MemoryTransport) SendTaskRequest(ctx context.Context, channelRef string, req TaskRequest) (Ack, error) {
	if err := ctx.Err(); err != nil {
		return Ack{}, err
	}
	now := t.clock.Now()
	raw, err := encodeTaskRequest(req, now)
	if err != nil {
		return Ack{}, err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return Ack{}, ErrClosed
	}
	ch, ok := t.channels[channelRef]
	if !ok {
		t.mu.Unlock()
		return Ack{}, fmt.Errorf("send task %s to %s: %w", req.TaskID, channelRef, ErrChannelNotFound)
	}
	seq := int64(len(ch.messages) + 1)
	d := Delivered{
		Ack: Ack{
			ChannelRef: channelRef,
			MessageID:  channelRef + "/" + strconv.FormatInt(seq, 10),
			Sequence:   seq,
			Timestamp:  now,
		},
		Request: req,
		Raw:     raw,
	}
	ch.messages = append(ch.messages, d)
	callbacks := append([]func(Delivered){}, t.subs[channelRef]...)
	t.mu.Unlock()

	for _, cb := range callbacks {
		cb(d)
	}
	return d.Ack, nil
}

// Subscribe registers a callback for messages sent to channelRef.
func (t *MemoryTransport) Subscribe(channelRef string, callback func(Delivered)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs[channelRef] = append(t.subs[channelRef], callback)
}

// Messages returns a copy of the messages sent to channelRef.
func (t *MemoryTransport) Messages(channelRef string) []Delivered {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ch, ok := t.channels[channelRef]
	if !ok {
		return nil
	}
	out := make([]Delivered, len(ch.messages))
	copy(out, ch.messages)
	return out
}

// Channels returns channel references in creation order.
func (t *MemoryTransport) Channels() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.order...)
}

// HasChannel reports whether channelRef exists.
func (t *MemoryTransport) HasChannel(channelRef string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.channels[channelRef]
	return ok
}

// Close rejects further operations.
func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
