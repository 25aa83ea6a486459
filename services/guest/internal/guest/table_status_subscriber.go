package guest

import (
	"context"
	"encoding/json"

	"github.com/appetiteclub/tableside/pkg"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
)

type TableStatusSubscriber struct {
	subscriber events.Subscriber
	cache      *TableStatusCache
	logger     aqm.Logger
}

func NewTableStatusSubscriber(sub events.Subscriber, cache *TableStatusCache, logger aqm.Logger) *TableStatusSubscriber {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &TableStatusSubscriber{
		subscriber: sub,
		cache:      cache,
		logger:     logger,
	}
}

func (s *TableStatusSubscriber) Start(ctx context.Context) error {
	if s.subscriber == nil || s.cache == nil {
		s.logger.Info("table status subscriber disabled")
		return nil
	}
	s.logger.Info("starting table status subscriber", "topic", pkg.TableStatusTopic)
	return s.subscriber.Subscribe(ctx, pkg.TableStatusTopic, s.handleEvent)
}

type unsubscriber interface {
	Unsubscribe(topic string) error
}

// Stop releases the topic when the subscriber supports it; the connection
// itself is closed by its owner.
func (s *TableStatusSubscriber) Stop(ctx context.Context) error {
	if u, ok := s.subscriber.(unsubscriber); ok {
		if err := u.Unsubscribe(pkg.TableStatusTopic); err != nil {
			s.logger.Info("cannot unsubscribe from table status", "error", err)
		}
	}
	return nil
}

func (s *TableStatusSubscriber) handleEvent(ctx context.Context, msg []byte) error {
	var evt pkg.TableStatusEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		s.logger.Info("invalid table status event", "error", err)
		return nil
	}
	if evt.TableID == "" {
		s.logger.Info("table status event without table id")
		return nil
	}

	s.cache.Set(evt.TableID, evt.Status)
	s.logger.Debug("table status updated", "table_id", evt.TableID, "status", evt.Status)
	return nil
}
