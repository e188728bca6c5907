package vecsync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// headerCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// DefaultFlushTimeout bounds a publish whose context carries no deadline.
const DefaultFlushTimeout = 5 * time.Second

// NATSPublisher publishes log entries as JSON with trace context in the headers.
type NATSPublisher struct {
	nc           *nats.Conn
	flushTimeout time.Duration
}

// NewNATSPublisher wraps an established connection.
func NewNATSPublisher(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: nc, flushTimeout: DefaultFlushTimeout}
}

// Connect dials url and returns a publisher owning the connection.
func Connect(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("brain-relay"))
	if err != nil {
		return nil, err
	}
	return NewNATSPublisher(nc), nil
}

// Publish implements Publisher. It returns once the server has processed
// the message, not when the client has buffered it.
func (p *NATSPublisher) Publish(ctx context.Context, subject string, entry LogEntry) error {
	msg, err := newMsg(ctx, subject, entry)
	if err != nil {
		return err
	}
	if err := p.nc.PublishMsg(msg); err != nil {
		return err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.flushTimeout)
		defer cancel()
	}
	return p.nc.FlushWithContext(ctx)
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}

func newMsg(ctx context.Context, subject string, entry LogEntry) (*nats.Msg, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	return msg, nil
}
