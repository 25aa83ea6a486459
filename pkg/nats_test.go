package pkg

import (
	"context"
	"errors"
	"testing"
	"time"
)

// Nothing listens on port 1, so these connections stay in reconnect mode.
const unreachableNATS = "nats://127.0.0.1:1"

func TestNATSPublisherStartsWithoutServer(t *testing.T) {
	p, err := NewNATSPublisher(NATSOptions{URL: unreachableNATS, Name: "guest-test", ReconnectWait: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewNATSPublisher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Publish(ctx, "guest.rounds", []byte("{}")); !errors.Is(err, context.Canceled) {
		t.Errorf("Publish() with cancelled context error = %v, want %v", err, context.Canceled)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := p.Publish(context.Background(), "guest.rounds", []byte("{}")); !errors.Is(err, ErrNATSClosed) {
		t.Errorf("Publish() after Close() error = %v, want %v", err, ErrNATSClosed)
	}
}

func TestNATSSubscriberUnsubscribeUnknownTopic(t *testing.T) {
	s, err := NewNATSSubscriber(NATSOptions{URL: unreachableNATS, ReconnectWait: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewNATSSubscriber() error = %v", err)
	}
	defer s.Close()

	if err := s.Unsubscribe(TableStatusTopic); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
}
