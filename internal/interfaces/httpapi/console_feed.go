package httpapi

import (
	"sync"

	"github.com/riskibarqy/auction-ledger/internal/bidding"
	"github.com/riskibarqy/auction-ledger/internal/platform/pubsub"
)

// ConsoleFeed fans the bid console's optimistic projection out to stream
// viewers. Publish is meant to be the coordinator's OnProjection hook.
type ConsoleFeed struct {
	mu     sync.Mutex
	hub    *pubsub.Hub[bidding.Projection]
	latest bidding.Projection
	seen   bool
}

func NewConsoleFeed() *ConsoleFeed {
	return &ConsoleFeed{hub: pubsub.NewHub[bidding.Projection]()}
}

// Publish drops a projection older than the last one delivered.
func (f *ConsoleFeed) Publish(p bidding.Projection) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.seen && p.Seq <= f.latest.Seq {
		return
	}
	f.latest, f.seen = p, true
	f.hub.Publish(p)
}

func (f *ConsoleFeed) Close() {
	f.hub.Close()
}

// subscribe starts from the last published projection, or from current
// when nothing was published yet.
func (f *ConsoleFeed) subscribe(current func() bidding.Projection) *pubsub.Subscription[bidding.Projection] {
	f.mu.Lock()
	defer f.mu.Unlock()

	initial := f.latest
	if !f.seen && current != nil {
		initial = current()
	}
	return f.hub.Subscribe(initial, nil)
}
