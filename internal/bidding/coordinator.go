package bidding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/auction-ledger/internal/domain/auction"
	"github.com/riskibarqy/auction-ledger/internal/domain/ledger"
	"github.com/riskibarqy/auction-ledger/internal/domain/team"
	"github.com/riskibarqy/auction-ledger/internal/platform/logging"
)

var (
	ErrClosed          = errors.New("bid coordinator closed")
	ErrFlushInProgress = errors.New("flush already in progress")
	ErrUnknownTeam     = errors.New("unknown team")
)

// Committer is the slice of the auction engine the coordinator writes through.
type Committer interface {
	CommitPendingBids(ctx context.Context, playerID string, bids []auction.Bid) (auction.State, error)
	UpdateLiveBid(ctx context.Context, playerID, teamID string, amount int64) error
}

type NoticeKind string

const (
	// NoticeDiscarded means pending bids were dropped because the block moved on.
	NoticeDiscarded   NoticeKind = "discarded"
	NoticeFlushed     NoticeKind = "flushed"
	NoticeFlushFailed NoticeKind = "flush_failed"
)

type Notice struct {
	Kind     NoticeKind
	PlayerID string
	Count    int
	Err      error
}

// Projection is the optimistic view of the block: committed bids followed
// by the batch being written and the bids still buffered.
type Projection struct {
	// Version is the ledger version of the committed part.
	Version uint64
	// Seq increases with every published projection. Callbacks run outside
	// the coordinator's lock, so observers drop one older than what they hold.
	Seq             uint64
	PlayerID        string
	Status          auction.Status
	CurrentBid      int64
	LeadingTeamID   string
	LeadingTeamName string
	MinimumNextBid  int64
	Committed       []auction.Bid
	Inflight        []auction.Bid
	Pending         []auction.Bid
}

type Options struct {
	Rules          auction.Rules
	FlushThreshold int
	FlushDelay     time.Duration
	FlushTimeout   time.Duration
	// Increment is the requested difference between bids; the rules raise it
	// to their own minimum.
	Increment    int64
	Clock        clockwork.Clock
	Workers      int
	Logger       *logging.Logger
	OnProjection func(Projection)
	OnNotice     func(Notice)
}

func (o Options) withDefaults() Options {
	if o.FlushThreshold <= 0 {
		o.FlushThreshold = 4
	}
	if o.FlushDelay <= 0 {
		o.FlushDelay = 800 * time.Millisecond
	}
	if o.FlushTimeout <= 0 {
		o.FlushTimeout = 10 * time.Second
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Logger == nil {
		o.Logger = logging.Default()
	}
	return o
}

// Coordinator buffers bids raised on the console and commits them in
// batches. A batch is written once FlushThreshold bids are waiting or after
// FlushDelay without a new bid. Pending bids tagged to a player that is no
// longer on the block are dropped, never written.
type Coordinator struct {
	committer Committer
	opts      Options
	logger    *logging.Logger
	pool      *ants.Pool

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	version  uint64
	state    auction.State
	teams    map[string]team.Team
	teamSize int

	pending          []auction.Bid
	pendingPlayerID  string
	inflight         []auction.Bid
	inflightPlayerID string
	// flushVersion is the ledger version the in-flight batch was cut against.
	flushVersion uint64
	flushing     bool

	timer    clockwork.Timer
	timerGen uint64
	seq      uint64
	closed   bool
}

func New(committer Committer, opts Options) (*Coordinator, error) {
	opts = opts.withDefaults()
	if err := opts.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid auction rules: %w", err)
	}

	logger := opts.Logger.Named("bidding.coordinator")
	pool, err := ants.NewPool(opts.Workers, ants.WithPanicHandler(func(p any) {
		logger.Error("bid coordinator task panicked", "panic", p)
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		committer: committer,
		opts:      opts,
		logger:    logger,
		pool:      pool,
		ctx:       ctx,
		cancel:    cancel,
		state:     auction.IdleState(),
		teams:     make(map[string]team.Team),
		teamSize:  opts.Rules.DefaultTeamSize,
	}, nil
}

// Run feeds committed ledger snapshots into the coordinator until ctx is
// done or the subscription ends.
func (c *Coordinator) Run(ctx context.Context, sub ledger.Subscription) error {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-sub.Updates():
			if !ok {
				return nil
			}
			c.Observe(snap)
		}
	}
}

// Observe replaces the committed view with snap. Snapshots older than the
// current view are ignored. Pending bids are dropped when the block now holds
// another player or bidding has closed.
func (c *Coordinator) Observe(snap ledger.Snapshot) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if snap.Version < c.version {
		c.mu.Unlock()
		c.logger.Debug("ignore older ledger snapshot", "version", snap.Version, "current_version", c.version)
		return
	}

	c.version = snap.Version
	if snap.HasAuction {
		c.state = snap.Auction.Clone()
	} else {
		c.state = auction.IdleState()
	}
	c.teams = make(map[string]team.Team, len(snap.Teams))
	for _, t := range snap.Teams {
		c.teams[t.ID] = t
	}
	c.teamSize = c.opts.Rules.TeamSize(snap.TeamSize())

	var notice *Notice
	if len(c.pending) > 0 && (c.pendingPlayerID != c.state.CurrentPlayerID || !c.state.IsLive()) {
		notice = &Notice{Kind: NoticeDiscarded, PlayerID: c.pendingPlayerID, Count: len(c.pending)}
		c.pending = nil
		c.pendingPlayerID = ""
		c.stopTimerLocked()
	}
	proj := c.nextProjectionLocked()
	c.mu.Unlock()

	if notice != nil {
		c.logger.Warn("pending bids discarded",
			"player_id", notice.PlayerID,
			"count", notice.Count,
			"current_player_id", proj.PlayerID,
		)
		c.notify(*notice)
	}
	c.project(proj)
}

// ProposeBid validates a bid against committed, in-flight and pending bids
// and buffers it. The checks run in order: same team twice in a row, the
// minimum next amount, then the team's max bid and purse.
func (c *Coordinator) ProposeBid(ctx context.Context, teamID string, amount int64) (Projection, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Projection{}, ErrClosed
	}
	if !c.state.HasCurrentPlayer() {
		c.mu.Unlock()
		return Projection{}, auction.ErrNoActivePlayer
	}
	if c.state.Status != auction.StatusLive {
		c.mu.Unlock()
		return Projection{}, auction.ErrAuctionNotLive
	}
	if amount <= 0 {
		c.mu.Unlock()
		return Projection{}, auction.ErrInvalidAmount
	}

	combined := c.combinedLocked()
	if err := auction.CheckConsecutive(combined, teamID); err != nil {
		c.mu.Unlock()
		return Projection{}, err
	}
	if minimum := c.opts.Rules.MinimumNextBid(combined, c.opts.Increment); amount < minimum {
		c.mu.Unlock()
		return Projection{}, fmt.Errorf("%w: amount=%d minimum=%d", auction.ErrBidBelowMinimum, amount, minimum)
	}
	t, ok := c.teams[teamID]
	if !ok {
		c.mu.Unlock()
		return Projection{}, fmt.Errorf("%w: team=%s", ErrUnknownTeam, teamID)
	}
	if err := t.Funds(c.opts.Rules, c.teamSize).CheckMaxBid(amount); err != nil {
		c.mu.Unlock()
		return Projection{}, err
	}

	bid := auction.Bid{
		TeamID:    t.ID,
		TeamName:  t.Name,
		Amount:    amount,
		Timestamp: c.opts.Clock.Now().UTC(),
	}
	playerID := c.state.CurrentPlayerID
	if c.pendingPlayerID != playerID {
		c.pending = nil
		c.pendingPlayerID = playerID
	}
	c.pending = append(c.pending, bid)

	flushNow := len(c.pending) >= c.opts.FlushThreshold
	if flushNow {
		c.stopTimerLocked()
	} else {
		c.resetTimerLocked()
	}
	proj := c.nextProjectionLocked()
	c.mu.Unlock()

	c.project(proj)
	c.submit("live bid hint", func() {
		hintCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.FlushTimeout)
		defer cancel()
		if err := c.committer.UpdateLiveBid(hintCtx, playerID, bid.TeamID, bid.Amount); err != nil {
			c.logger.Debug("live bid hint failed", "player_id", playerID, "team_id", bid.TeamID, "amount", bid.Amount, "error", err)
		}
	})
	if flushNow {
		c.flushAsync("threshold")
	}
	return proj, nil
}

// Flush writes every pending bid now. It returns ErrFlushInProgress while
// another batch is being written; bids buffered meanwhile join the next one.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.flushing {
		c.mu.Unlock()
		return ErrFlushInProgress
	}
	c.stopTimerLocked()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return nil
	}

	batch, playerID := c.pending, c.pendingPlayerID
	c.inflight = batch
	c.inflightPlayerID = playerID
	c.flushVersion = c.version
	c.pending = nil
	c.flushing = true
	c.mu.Unlock()

	return c.commit(ctx, playerID, batch)
}

func (c *Coordinator) commit(ctx context.Context, playerID string, batch []auction.Bid) error {
	next, err := c.committer.CommitPendingBids(ctx, playerID, batch)

	c.mu.Lock()
	c.flushing = false
	c.inflight = nil
	c.inflightPlayerID = ""

	var notice Notice
	switch {
	case err == nil:
		// A snapshot observed during the write is newer than the view the
		// batch was cut against; it stays until the commit's own snapshot
		// arrives.
		if c.state.CurrentPlayerID == playerID && c.version == c.flushVersion {
			c.state = next
		}
		notice = Notice{Kind: NoticeFlushed, PlayerID: playerID, Count: len(batch)}
	case errors.Is(err, auction.ErrPlayerChanged) || c.state.CurrentPlayerID != playerID:
		notice = Notice{Kind: NoticeDiscarded, PlayerID: playerID, Count: len(batch), Err: err}
	default:
		if len(c.pending) == 0 || c.pendingPlayerID == playerID {
			c.pending = auction.Combine(batch, c.pending)
			c.pendingPlayerID = playerID
		}
		notice = Notice{Kind: NoticeFlushFailed, PlayerID: playerID, Count: len(batch), Err: err}
	}

	again := false
	if err == nil && len(c.pending) > 0 && !c.closed {
		if len(c.pending) >= c.opts.FlushThreshold {
			again = true
		} else {
			c.resetTimerLocked()
		}
	}
	proj := c.nextProjectionLocked()
	c.mu.Unlock()

	switch notice.Kind {
	case NoticeFlushed:
		c.logger.Debug("pending bids flushed", "player_id", playerID, "count", len(batch))
	case NoticeDiscarded:
		c.logger.Warn("in-flight bids discarded", "player_id", playerID, "count", len(batch), "error", err)
	default:
		c.logger.Warn("flush pending bids failed", "player_id", playerID, "count", len(batch), "error", err)
	}
	c.notify(notice)
	c.project(proj)

	if again {
		c.flushAsync("threshold")
	}
	if err != nil {
		return fmt.Errorf("flush %d bids: %w", len(batch), err)
	}
	return nil
}

func (c *Coordinator) Projection() Projection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionLocked()
}

// PendingCount counts buffered and in-flight bids for the player on the
// block.
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending) + len(c.inflightLocked())
}

// Close stops the timer and the worker pool. Pending bids are not written.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopTimerLocked()
	c.mu.Unlock()

	c.cancel()
	c.pool.Release()
}

func (c *Coordinator) flushAsync(reason string) {
	c.submit("flush", func() {
		ctx, cancel := context.WithTimeout(c.ctx, c.opts.FlushTimeout)
		defer cancel()
		if err := c.Flush(ctx); err != nil && !errors.Is(err, ErrFlushInProgress) && !errors.Is(err, ErrClosed) {
			c.logger.Debug("background flush failed", "reason", reason, "error", err)
		}
	})
}

func (c *Coordinator) submit(task string, fn func()) {
	if err := c.pool.Submit(fn); err != nil && !errors.Is(err, ants.ErrPoolClosed) {
		c.logger.Warn("submit coordinator task failed", "task", task, "error", err)
	}
}

func (c *Coordinator) resetTimerLocked() {
	c.stopTimerLocked()
	c.timerGen++
	gen := c.timerGen
	c.timer = c.opts.Clock.AfterFunc(c.opts.FlushDelay, func() {
		c.mu.Lock()
		stale := gen != c.timerGen || c.closed
		if !stale {
			c.timer = nil
		}
		c.mu.Unlock()
		if !stale {
			c.flushAsync("idle")
		}
	})
}

func (c *Coordinator) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}

// inflightLocked is the batch being written, or nil when it was cut for a
// player that has since left the block.
func (c *Coordinator) inflightLocked() []auction.Bid {
	if c.inflightPlayerID != c.state.CurrentPlayerID {
		return nil
	}
	return c.inflight
}

func (c *Coordinator) combinedLocked() []auction.Bid {
	return auction.Combine(c.state.BidHistory, c.inflightLocked(), c.pending)
}

// nextProjectionLocked is the projection handed to OnProjection.
func (c *Coordinator) nextProjectionLocked() Projection {
	c.seq++
	return c.projectionLocked()
}

func (c *Coordinator) projectionLocked() Projection {
	combined := c.combinedLocked()
	proj := Projection{
		Version:        c.version,
		Seq:            c.seq,
		PlayerID:       c.state.CurrentPlayerID,
		Status:         c.state.Status,
		CurrentBid:     c.state.CurrentBid,
		LeadingTeamID:  c.state.LeadingTeamID,
		MinimumNextBid: c.opts.Rules.MinimumNextBid(combined, c.opts.Increment),
		Committed:      auction.Combine(c.state.BidHistory),
		Inflight:       auction.Combine(c.inflightLocked()),
		Pending:        auction.Combine(c.pending),
	}
	if len(combined) > 0 {
		proj.CurrentBid, proj.LeadingTeamID = auction.Lead(combined)
	}
	if t, ok := c.teams[proj.LeadingTeamID]; ok {
		proj.LeadingTeamName = t.Name
	}
	return proj
}

func (c *Coordinator) project(p Projection) {
	if c.opts.OnProjection != nil {
		c.opts.OnProjection(p)
	}
}

func (c *Coordinator) notify(n Notice) {
	if c.opts.OnNotice != nil {
		c.opts.OnNotice(n)
	}
}
