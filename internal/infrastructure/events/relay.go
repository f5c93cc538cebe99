package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/riskibarqy/auction-ledger/internal/domain/ledger"
	"github.com/riskibarqy/auction-ledger/internal/platform/logging"
)

const defaultSubjectPrefix = "auction"

// Publisher is the subset of *nats.Conn the relay needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type RelayConfig struct {
	SubjectPrefix string
	Clock         clockwork.Clock
}

// Relay republishes committed ledger changes to NATS as "<prefix>.<topic>".
type Relay struct {
	publisher Publisher
	prefix    string
	clock     clockwork.Clock
	logger    *logging.Logger
}

func NewRelay(publisher Publisher, cfg RelayConfig, logger *logging.Logger) *Relay {
	if logger == nil {
		logger = logging.Default()
	}
	prefix := strings.Trim(strings.TrimSpace(cfg.SubjectPrefix), ".")
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Relay{
		publisher: publisher,
		prefix:    prefix,
		clock:     clock,
		logger:    logger.Named("events"),
	}
}

func (r *Relay) Subject(topic ledger.Topic) string {
	return r.prefix + "." + string(topic)
}

// Run publishes until ctx is done or the subscription ends. The snapshot
// current at subscribe time only seeds the version. When the subscription
// skipped versions, every topic is republished since the skipped commits'
// topics are unknown.
func (r *Relay) Run(ctx context.Context, store ledger.Store) error {
	sub, err := store.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe ledger events: %w", err)
	}
	defer sub.Close()

	r.logger.InfoContext(ctx, "event relay started", "prefix", r.prefix)

	var (
		last   uint64
		seeded bool
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-sub.Updates():
			if !ok {
				return nil
			}
			if !seeded {
				last, seeded = snap.Version, true
				continue
			}
			if snap.Version <= last {
				continue
			}
			topics := snap.Topics
			if snap.Version > last+1 {
				topics = ledger.AllTopics
			}
			last = snap.Version
			if err := r.PublishSnapshot(topics, snap); err != nil {
				r.logger.WarnContext(ctx, "publish ledger event failed", "version", snap.Version, "error", err)
			}
		}
	}
}

// PublishSnapshot publishes one event per topic and returns the first failure.
func (r *Relay) PublishSnapshot(topics []ledger.Topic, snap ledger.Snapshot) error {
	now := r.clock.Now()
	var firstErr error
	for _, topic := range topics {
		payload, err := sonic.Marshal(BuildEvent(topic, snap, now))
		if err != nil {
			if firstErr == nil {
				firstErr = crerr.Wrapf(err, "encode %s event", topic)
			}
			continue
		}
		if err := r.publisher.Publish(r.Subject(topic), payload); err != nil && firstErr == nil {
			firstErr = crerr.Wrapf(err, "publish %s", r.Subject(topic))
		}
	}
	return firstErr
}

// Connect dials NATS with reconnects that never give up.
func Connect(url, name string, logger *logging.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.Named("nats")

	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Error("nats error", "error", err)
		}),
	)
	if err != nil {
		return nil, crerr.Wrap(err, "connect to nats")
	}
	return nc, nil
}
