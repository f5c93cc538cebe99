package bidding_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/riskibarqy/auction-ledger/internal/bidding"
	"github.com/riskibarqy/auction-ledger/internal/domain/auction"
	"github.com/riskibarqy/auction-ledger/internal/domain/ledger"
	"github.com/riskibarqy/auction-ledger/internal/domain/team"
	"github.com/riskibarqy/auction-ledger/internal/domain/tournament"
	biddingmock "github.com/riskibarqy/auction-ledger/internal/mocks/bidding"
	"github.com/riskibarqy/auction-ledger/internal/platform/logging"
	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

func liveSnapshot(version uint64, playerID string, history ...auction.Bid) ledger.Snapshot {
	rules := auction.DefaultRules()
	state := auction.State{
		CurrentPlayerID: playerID,
		CurrentBid:      rules.OpeningBid,
		Status:          auction.StatusLive,
		BidHistory:      history,
	}
	if len(history) > 0 {
		state.CurrentBid, state.LeadingTeamID = auction.Lead(history)
	}
	return ledger.Snapshot{
		Version:       version,
		Topics:        ledger.AllTopics,
		HasTournament: true,
		Tournament:    tournament.Tournament{Name: "Cup", TeamSize: 9},
		HasAuction:    true,
		Auction:       state,
		Teams: []team.Team{
			team.New("team-a", "Team A", "", 500000, rules, 9, testNow),
			team.New("team-b", "Team B", "", 500000, rules, 9, testNow),
			team.New("team-c", "Team C", "", 60000, rules, 9, testNow),
		},
	}
}

type harness struct {
	coordinator *bidding.Coordinator
	committer   *biddingmock.Committer
	clock       *clockwork.FakeClock
	notices     chan bidding.Notice
	hints       chan liveHint
}

type liveHint struct {
	playerID string
	teamID   string
	amount   int64
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		committer: biddingmock.NewCommitter(t),
		clock:     clockwork.NewFakeClockAt(testNow),
		notices:   make(chan bidding.Notice, 16),
		hints:     make(chan liveHint, 16),
	}
	h.committer.On("UpdateLiveBid", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			select {
			case h.hints <- liveHint{playerID: args.String(1), teamID: args.String(2), amount: args.Get(3).(int64)}:
			default:
			}
		}).
		Return(nil).
		Maybe()

	c, err := bidding.New(h.committer, bidding.Options{
		Rules:    auction.DefaultRules(),
		Clock:    h.clock,
		Logger:   logging.NewNop(),
		OnNotice: func(n bidding.Notice) { h.notices <- n },
	})
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}
	t.Cleanup(c.Close)
	h.coordinator = c
	return h
}

func (h *harness) propose(t *testing.T, teamID string, amount int64) bidding.Projection {
	t.Helper()
	proj, err := h.coordinator.ProposeBid(context.Background(), teamID, amount)
	if err != nil {
		t.Fatalf("propose team=%s amount=%d: %v", teamID, amount, err)
	}
	return proj
}

func (h *harness) waitNotice(t *testing.T, kind bidding.NoticeKind) bidding.Notice {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case n := <-h.notices:
			if n.Kind == kind {
				return n
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s notice", kind)
		}
	}
}

func batchOf(n int) any {
	return mock.MatchedBy(func(bids []auction.Bid) bool { return len(bids) == n })
}

func committedState(playerID string, bids []auction.Bid) auction.State {
	state := auction.State{CurrentPlayerID: playerID, Status: auction.StatusLive, BidHistory: bids}
	state.CurrentBid, state.LeadingTeamID = auction.Lead(bids)
	return state
}

func TestCoordinator_FlushesAtThreshold(t *testing.T) {
	h := newHarness(t)
	h.coordinator.Observe(liveSnapshot(1, "p1"))

	h.committer.
		On("CommitPendingBids", mock.Anything, "p1", batchOf(4)).
		Return(func(_ context.Context, playerID string, bids []auction.Bid) (auction.State, error) {
			return committedState(playerID, bids), nil
		}).
		Once()

	h.propose(t, "team-a", 20000)
	h.propose(t, "team-b", 25000)
	h.propose(t, "team-a", 30000)
	proj := h.propose(t, "team-b", 35000)
	if proj.CurrentBid != 35000 || proj.LeadingTeamID != "team-b" || proj.LeadingTeamName != "Team B" {
		t.Fatalf("unexpected optimistic projection: %+v", proj)
	}

	n := h.waitNotice(t, bidding.NoticeFlushed)
	if n.Count != 4 || n.PlayerID != "p1" {
		t.Fatalf("unexpected flush notice: %+v", n)
	}
	if got := h.coordinator.PendingCount(); got != 0 {
		t.Fatalf("expected no pending bids, got %d", got)
	}
	if got := h.coordinator.Projection(); len(got.Committed) != 4 || got.MinimumNextBid != 40000 {
		t.Fatalf("expected batch folded into committed view, got %+v", got)
	}
}

func TestCoordinator_FlushesAfterIdleDelay(t *testing.T) {
	h := newHarness(t)
	h.coordinator.Observe(liveSnapshot(1, "p1"))

	h.committer.
		On("CommitPendingBids", mock.Anything, "p1", batchOf(2)).
		Return(func(_ context.Context, playerID string, bids []auction.Bid) (auction.State, error) {
			return committedState(playerID, bids), nil
		}).
		Once()

	h.propose(t, "team-a", 20000)
	h.clock.Advance(500 * time.Millisecond)
	h.propose(t, "team-b", 25000)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("wait for debounce timer: %v", err)
	}

	// The first timer was reset by the second bid.
	h.clock.Advance(500 * time.Millisecond)
	if got := h.coordinator.PendingCount(); got != 2 {
		t.Fatalf("expected bids to stay pending before the delay, got %d", got)
	}

	h.clock.Advance(300 * time.Millisecond)
	n := h.waitNotice(t, bidding.NoticeFlushed)
	if n.Count != 2 {
		t.Fatalf("expected 2 flushed bids, got %d", n.Count)
	}
}

func TestCoordinator_ProposeBidValidatesCombinedView(t *testing.T) {
	h := newHarness(t)

	if _, err := h.coordinator.ProposeBid(context.Background(), "team-a", 20000); !errors.Is(err, auction.ErrNoActivePlayer) {
		t.Fatalf("expected ErrNoActivePlayer, got %v", err)
	}
	idle := liveSnapshot(1, "p1")
	idle.Auction.Status = auction.StatusIdle
	h.coordinator.Observe(idle)
	if _, err := h.coordinator.ProposeBid(context.Background(), "team-a", 20000); !errors.Is(err, auction.ErrAuctionNotLive) {
		t.Fatalf("expected ErrAuctionNotLive, got %v", err)
	}

	committed := []auction.Bid{{TeamID: "team-b", TeamName: "Team B", Amount: 20000, Timestamp: testNow}}
	h.coordinator.Observe(liveSnapshot(2, "p1", committed...))
	h.propose(t, "team-a", 25000)

	cases := []struct {
		name   string
		teamID string
		amount int64
		target error
	}{
		{name: "same team as pending tail", teamID: "team-a", amount: 40000, target: auction.ErrSameTeamConsecutive},
		{name: "below minimum", teamID: "team-b", amount: 29999, target: auction.ErrBidBelowMinimum},
		{name: "unknown team", teamID: "team-x", amount: 30000, target: bidding.ErrUnknownTeam},
		{name: "exceeds max bid", teamID: "team-c", amount: 30000, target: auction.ErrExceedsMaxBid},
		{name: "non-positive", teamID: "team-b", amount: 0, target: auction.ErrInvalidAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.coordinator.ProposeBid(context.Background(), tc.teamID, tc.amount)
			if !errors.Is(err, tc.target) {
				t.Fatalf("expected %v, got %v", tc.target, err)
			}
		})
	}

	if got := h.coordinator.PendingCount(); got != 1 {
		t.Fatalf("rejected bids must not be buffered, got %d pending", got)
	}
}

func TestCoordinator_HighBidIncrement(t *testing.T) {
	h := newHarness(t)
	committed := []auction.Bid{{TeamID: "team-b", TeamName: "Team B", Amount: 100000, Timestamp: testNow}}
	h.coordinator.Observe(liveSnapshot(1, "p1", committed...))

	if got := h.coordinator.Projection().MinimumNextBid; got != 110000 {
		t.Fatalf("expected minimum 110000, got %d", got)
	}
	if _, err := h.coordinator.ProposeBid(context.Background(), "team-a", 105000); !errors.Is(err, auction.ErrBidBelowMinimum) {
		t.Fatalf("expected ErrBidBelowMinimum, got %v", err)
	}
	h.propose(t, "team-a", 110000)
}

func TestCoordinator_PlayerChangeDiscardsPending(t *testing.T) {
	h := newHarness(t)
	h.coordinator.Observe(liveSnapshot(1, "p1"))

	h.propose(t, "team-a", 20000)
	h.propose(t, "team-b", 25000)

	h.coordinator.Observe(liveSnapshot(2, "p2"))

	n := h.waitNotice(t, bidding.NoticeDiscarded)
	if n.PlayerID != "p1" || n.Count != 2 {
		t.Fatalf("unexpected discard notice: %+v", n)
	}
	if got := h.coordinator.PendingCount(); got != 0 {
		t.Fatalf("expected pending bids discarded, got %d", got)
	}

	// Nothing is left to write, and the stale timer must not fire a commit.
	h.clock.Advance(time.Second)
	if err := h.coordinator.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	h.committer.AssertNotCalled(t, "CommitPendingBids", mock.Anything, mock.Anything, mock.Anything)
}

func TestCoordinator_FailedFlushKeepsPending(t *testing.T) {
	h := newHarness(t)
	h.coordinator.Observe(liveSnapshot(1, "p1"))

	boom := errors.New("store unavailable")
	h.committer.On("CommitPendingBids", mock.Anything, "p1", batchOf(2)).Return(auction.State{}, boom).Once()

	h.propose(t, "team-a", 20000)
	h.propose(t, "team-b", 25000)

	if err := h.coordinator.Flush(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected flush error, got %v", err)
	}
	if got := h.coordinator.PendingCount(); got != 2 {
		t.Fatalf("expected pending bids preserved, got %d", got)
	}
	h.waitNotice(t, bidding.NoticeFlushFailed)

	h.committer.
		On("CommitPendingBids", mock.Anything, "p1", batchOf(2)).
		Return(func(_ context.Context, playerID string, bids []auction.Bid) (auction.State, error) {
			return committedState(playerID, bids), nil
		}).
		Once()
	if err := h.coordinator.Flush(context.Background()); err != nil {
		t.Fatalf("retry flush: %v", err)
	}
	if got := h.coordinator.PendingCount(); got != 0 {
		t.Fatalf("expected pending bids cleared, got %d", got)
	}
}

func TestCoordinator_PlayerChangedOnCommitDiscardsBatch(t *testing.T) {
	h := newHarness(t)
	h.coordinator.Observe(liveSnapshot(1, "p1"))

	h.committer.
		On("CommitPendingBids", mock.Anything, "p1", batchOf(1)).
		Return(auction.State{}, auction.ErrPlayerChanged).
		Once()

	h.propose(t, "team-a", 20000)
	if err := h.coordinator.Flush(context.Background()); !errors.Is(err, auction.ErrPlayerChanged) {
		t.Fatalf("expected ErrPlayerChanged, got %v", err)
	}
	if got := h.coordinator.PendingCount(); got != 0 {
		t.Fatalf("expected stale batch dropped, got %d pending", got)
	}
	h.waitNotice(t, bidding.NoticeDiscarded)
}

func TestCoordinator_BidsDuringFlushJoinNextBatch(t *testing.T) {
	h := newHarness(t)
	h.coordinator.Observe(liveSnapshot(1, "p1"))

	started := make(chan struct{})
	release := make(chan struct{})
	h.committer.
		On("CommitPendingBids", mock.Anything, "p1", batchOf(1)).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(func(_ context.Context, playerID string, bids []auction.Bid) (auction.State, error) {
			return committedState(playerID, bids), nil
		}).
		Once()

	h.propose(t, "team-a", 20000)

	flushed := make(chan error, 1)
	go func() { flushed <- h.coordinator.Flush(context.Background()) }()
	<-started

	// The in-flight bid still counts for ordering.
	if _, err := h.coordinator.ProposeBid(context.Background(), "team-a", 30000); !errors.Is(err, auction.ErrSameTeamConsecutive) {
		t.Fatalf("expected ErrSameTeamConsecutive against in-flight bid, got %v", err)
	}
	proj := h.propose(t, "team-b", 25000)
	if len(proj.Inflight) != 1 || len(proj.Pending) != 1 {
		t.Fatalf("unexpected projection during flush: %+v", proj)
	}
	if err := h.coordinator.Flush(context.Background()); !errors.Is(err, bidding.ErrFlushInProgress) {
		t.Fatalf("expected ErrFlushInProgress, got %v", err)
	}

	close(release)
	if err := <-flushed; err != nil {
		t.Fatalf("first flush: %v", err)
	}
	if got := h.coordinator.PendingCount(); got != 1 {
		t.Fatalf("expected the later bid to wait for the next batch, got %d", got)
	}
}

// blockCommit makes the next commit for playerID wait until release is
// closed, then return result and err.
func (h *harness) blockCommit(playerID string, n int, result func([]auction.Bid) auction.State, err error) (started, release chan struct{}) {
	started = make(chan struct{})
	release = make(chan struct{})
	h.committer.
		On("CommitPendingBids", mock.Anything, playerID, batchOf(n)).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(func(_ context.Context, _ string, bids []auction.Bid) (auction.State, error) {
			if err != nil {
				return auction.State{}, err
			}
			return result(bids), nil
		}).
		Once()
	return started, release
}

func TestCoordinator_InflightBatchStaysWithItsPlayer(t *testing.T) {
	h := newHarness(t)
	h.coordinator.Observe(liveSnapshot(1, "p1"))

	started, release := h.blockCommit("p1", 1, nil, auction.ErrPlayerChanged)
	h.propose(t, "team-a", 90000)

	flushed := make(chan error, 1)
	go func() { flushed <- h.coordinator.Flush(context.Background()) }()
	<-started

	h.coordinator.Observe(liveSnapshot(2, "p2"))

	proj := h.coordinator.Projection()
	if proj.PlayerID != "p2" || proj.CurrentBid != 20000 || proj.LeadingTeamID != "" {
		t.Fatalf("p1 batch leaked into the p2 view: %+v", proj)
	}
	if proj.MinimumNextBid != 20000 || len(proj.Inflight) != 0 {
		t.Fatalf("expected a fresh block for p2, got %+v", proj)
	}
	if got := h.coordinator.PendingCount(); got != 0 {
		t.Fatalf("p1 batch must not count against p2, got %d", got)
	}

	// team-a led p1; it may still open p2.
	proj = h.propose(t, "team-a", 20000)
	if proj.PlayerID != "p2" || proj.CurrentBid != 20000 || proj.LeadingTeamID != "team-a" {
		t.Fatalf("unexpected p2 projection: %+v", proj)
	}

	close(release)
	if err := <-flushed; !errors.Is(err, auction.ErrPlayerChanged) {
		t.Fatalf("expected ErrPlayerChanged for the p1 batch, got %v", err)
	}
	n := h.waitNotice(t, bidding.NoticeDiscarded)
	if n.PlayerID != "p1" || n.Count != 1 {
		t.Fatalf("unexpected discard notice: %+v", n)
	}
	if got := h.coordinator.PendingCount(); got != 1 {
		t.Fatalf("expected the p2 bid to stay pending, got %d", got)
	}
}

func TestCoordinator_LiveBidHintNamesPlayer(t *testing.T) {
	h := newHarness(t)
	h.coordinator.Observe(liveSnapshot(1, "p1"))

	h.propose(t, "team-a", 20000)

	select {
	case hint := <-h.hints:
		if hint != (liveHint{playerID: "p1", teamID: "team-a", amount: 20000}) {
			t.Fatalf("unexpected hint: %+v", hint)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for live bid hint")
	}
}

func TestCoordinator_IgnoresOlderSnapshotDuringFlush(t *testing.T) {
	h := newHarness(t)
	h.coordinator.Observe(liveSnapshot(5, "p1"))

	started, release := h.blockCommit("p1", 1, func(bids []auction.Bid) auction.State {
		return committedState("p1", bids)
	}, nil)
	h.propose(t, "team-a", 20000)

	flushed := make(chan error, 1)
	go func() { flushed <- h.coordinator.Flush(context.Background()) }()
	<-started

	stale := liveSnapshot(4, "p1", auction.Bid{TeamID: "team-c", TeamName: "Team C", Amount: 20000, Timestamp: testNow})
	h.coordinator.Observe(stale)
	if got := h.coordinator.Projection(); got.Version != 5 || len(got.Committed) != 0 {
		t.Fatalf("older snapshot replaced the view: %+v", got)
	}

	close(release)
	if err := <-flushed; err != nil {
		t.Fatalf("flush: %v", err)
	}
	got := h.coordinator.Projection()
	if len(got.Committed) != 1 || got.LeadingTeamID != "team-a" || got.MinimumNextBid != 25000 {
		t.Fatalf("expected the commit result folded in, got %+v", got)
	}
}

func TestCoordinator_NewerSnapshotDuringFlushWins(t *testing.T) {
	h := newHarness(t)
	h.coordinator.Observe(liveSnapshot(1, "p1"))

	started, release := h.blockCommit("p1", 1, func(bids []auction.Bid) auction.State {
		return committedState("p1", bids)
	}, nil)
	h.propose(t, "team-a", 20000)

	flushed := make(chan error, 1)
	go func() { flushed <- h.coordinator.Flush(context.Background()) }()
	<-started

	newer := liveSnapshot(3, "p1",
		auction.Bid{TeamID: "team-a", TeamName: "Team A", Amount: 20000, Timestamp: testNow},
		auction.Bid{TeamID: "team-b", TeamName: "Team B", Amount: 25000, Timestamp: testNow},
	)
	h.coordinator.Observe(newer)

	close(release)
	if err := <-flushed; err != nil {
		t.Fatalf("flush: %v", err)
	}
	got := h.coordinator.Projection()
	if got.Version != 3 || len(got.Committed) != 2 || got.CurrentBid != 25000 || got.LeadingTeamID != "team-b" {
		t.Fatalf("commit result rolled back a newer snapshot: %+v", got)
	}
}

func TestCoordinator_CloseRejectsBids(t *testing.T) {
	h := newHarness(t)
	h.coordinator.Observe(liveSnapshot(1, "p1"))
	h.coordinator.Close()

	if _, err := h.coordinator.ProposeBid(context.Background(), "team-a", 20000); !errors.Is(err, bidding.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := h.coordinator.Flush(context.Background()); !errors.Is(err, bidding.ErrClosed) {
		t.Fatalf("expected ErrClosed on flush, got %v", err)
	}
}

func TestCoordinator_RunObservesSubscription(t *testing.T) {
	h := newHarness(t)

	updates := make(chan ledger.Snapshot, 1)
	sub := &fakeSubscription{ch: updates}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.coordinator.Run(ctx, sub) }()

	updates <- liveSnapshot(7, "p9")
	deadline := time.Now().Add(2 * time.Second)
	for h.coordinator.Projection().PlayerID != "p9" {
		if time.Now().After(deadline) {
			t.Fatalf("snapshot was not observed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if !sub.closed {
		t.Fatalf("expected subscription to be closed")
	}
}

type fakeSubscription struct {
	ch     chan ledger.Snapshot
	closed bool
}

func (s *fakeSubscription) Updates() <-chan ledger.Snapshot { return s.ch }
func (s *fakeSubscription) Close()                          { s.closed = true }
