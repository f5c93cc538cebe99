package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/riskibarqy/auction-ledger/internal/domain/ledger"
)

const (
	listenerMinReconnect = 200 * time.Millisecond
	listenerMaxReconnect = 10 * time.Second
	listenerPingInterval = 30 * time.Second
)

// Listen relays commits made by other processes to local subscribers. It
// blocks until ctx is done. After a reconnect the store resyncs from a
// fresh snapshot, since notifications sent while disconnected are lost.
func (s *LedgerStore) Listen(ctx context.Context, dsn string) error {
	if s.channel == "" {
		<-ctx.Done()
		return nil
	}

	listener := pq.NewListener(dsn, listenerMinReconnect, listenerMaxReconnect, func(event pq.ListenerEventType, err error) {
		switch event {
		case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
			s.logger.Warn("ledger listener connection lost", "event", event, "error", err)
		case pq.ListenerEventReconnected:
			s.logger.Info("ledger listener reconnected")
		}
	})
	defer func() {
		_ = listener.Close()
	}()

	if err := listener.Listen(s.channel); err != nil {
		return fmt.Errorf("listen on %s: %w", s.channel, err)
	}
	s.logger.InfoContext(ctx, "ledger listener started", "channel", s.channel)

	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			if n == nil {
				s.refresh(ctx, 0, nil)
				continue
			}
			version, topics, err := parseNotification(n.Extra)
			if err != nil {
				s.logger.WarnContext(ctx, "ignore malformed ledger notification", "payload", n.Extra, "error", err)
				continue
			}
			s.refresh(ctx, version, topics)
		case <-ticker.C:
			if err := listener.Ping(); err != nil {
				s.logger.WarnContext(ctx, "ledger listener ping failed", "error", err)
			}
		}
	}
}

// formatNotification encodes "version|topic,topic".
func formatNotification(version uint64, topics []ledger.Topic) string {
	parts := make([]string, 0, len(topics))
	for _, topic := range topics {
		parts = append(parts, string(topic))
	}
	return strconv.FormatUint(version, 10) + "|" + strings.Join(parts, ",")
}

func parseNotification(payload string) (uint64, []ledger.Topic, error) {
	rawVersion, rawTopics, ok := strings.Cut(payload, "|")
	if !ok {
		return 0, nil, fmt.Errorf("missing separator")
	}
	version, err := strconv.ParseUint(rawVersion, 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("parse version: %w", err)
	}

	var topics []ledger.Topic
	for _, raw := range strings.Split(rawTopics, ",") {
		if raw == "" {
			continue
		}
		topic, ok := ledger.ParseTopic(raw)
		if !ok {
			return 0, nil, fmt.Errorf("unknown topic %q", raw)
		}
		topics = append(topics, topic)
	}
	return version, topics, nil
}
