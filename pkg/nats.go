package pkg

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
	"github.com/nats-io/nats.go"
)

const defaultReconnectWait = 2 * time.Second

var ErrNATSClosed = errors.New("nats connection closed")

// NATSOptions configures a connection from a tableside device. The device
// may boot before the network is up, so connecting never fails on an
// unreachable server: the client keeps retrying and buffers publishes.
type NATSOptions struct {
	URL           string
	Name          string
	ReconnectWait time.Duration
	Logger        aqm.Logger
}

func connectNATS(opts NATSOptions) (*nats.Conn, error) {
	logger := opts.Logger
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	wait := opts.ReconnectWait
	if wait <= 0 {
		wait = defaultReconnectWait
	}

	natsOpts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(wait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Info("nats disconnected", "name", opts.Name, "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "name", opts.Name, "url", c.ConnectedUrl())
		}),
	}
	if opts.Name != "" {
		natsOpts = append(natsOpts, nats.Name(opts.Name))
	}

	conn, err := nats.Connect(opts.URL, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(opts NATSOptions) (*NATSPublisher, error) {
	conn, err := connectNATS(opts)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.conn.IsClosed() {
		return ErrNATSClosed
	}
	return p.conn.Publish(topic, msg)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// NATSSubscriber keeps one subscription per topic so a component can let go
// of its topic on stop while the connection stays up for the others.
type NATSSubscriber struct {
	conn   *nats.Conn
	logger aqm.Logger

	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

func NewNATSSubscriber(opts NATSOptions) (*NATSSubscriber, error) {
	logger := opts.Logger
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	conn, err := connectNATS(opts)
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{
		conn:   conn,
		logger: logger,
		subs:   make(map[string]*nats.Subscription),
	}, nil
}

// Subscribe replaces any earlier subscription on the same topic.
func (s *NATSSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	handlerCtx := context.WithoutCancel(ctx)
	sub, err := s.conn.Subscribe(topic, func(msg *nats.Msg) {
		if err := handler(handlerCtx, msg.Data); err != nil {
			s.logger.Error("event handler failed", "topic", topic, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	s.mu.Lock()
	previous := s.subs[topic]
	s.subs[topic] = sub
	s.mu.Unlock()

	if previous != nil {
		_ = previous.Unsubscribe()
	}
	return nil
}

func (s *NATSSubscriber) Unsubscribe(topic string) error {
	s.mu.Lock()
	sub := s.subs[topic]
	delete(s.subs, topic)
	s.mu.Unlock()

	if sub == nil || s.conn.IsClosed() {
		return nil
	}
	return sub.Unsubscribe()
}

// Close drains in-flight messages before closing the connection.
func (s *NATSSubscriber) Close() error {
	s.mu.Lock()
	s.subs = make(map[string]*nats.Subscription)
	s.mu.Unlock()

	if s.conn.IsClosed() {
		return nil
	}
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
	}
	return nil
}
