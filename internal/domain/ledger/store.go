package ledger

import (
	"context"
	"errors"

	"github.com/riskibarqy/auction-ledger/internal/domain/auction"
	"github.com/riskibarqy/auction-ledger/internal/domain/player"
	"github.com/riskibarqy/auction-ledger/internal/domain/team"
	"github.com/riskibarqy/auction-ledger/internal/domain/tournament"
)

// ErrConflict is returned when a document read inside a transaction was
// changed by another commit before this one landed.
var ErrConflict = errors.New("ledger write conflict")

// Topic names one observable slice of the ledger.
type Topic string

const (
	TopicTournament   Topic = "tournament"
	TopicAuctionState Topic = "auctionState"
	TopicTeams        Topic = "teams"
	TopicPlayers      Topic = "players"
)

var AllTopics = []Topic{TopicTournament, TopicAuctionState, TopicTeams, TopicPlayers}

func ParseTopic(raw string) (Topic, bool) {
	for _, topic := range AllTopics {
		if string(topic) == raw {
			return topic, true
		}
	}
	return "", false
}

// Tx is one all-or-nothing unit of work. Reads observe the snapshot the
// transaction started from plus its own staged writes. Writes are buffered
// and applied only when the transaction function returns nil.
type Tx interface {
	Tournament(ctx context.Context) (tournament.Tournament, bool, error)
	AuctionState(ctx context.Context) (auction.State, bool, error)
	Team(ctx context.Context, id string) (team.Team, bool, error)
	Player(ctx context.Context, id string) (player.Player, bool, error)
	Teams(ctx context.Context) ([]team.Team, error)
	Players(ctx context.Context) ([]player.Player, error)

	PutTournament(t tournament.Tournament)
	PutAuctionState(s auction.State)
	PutTeam(t team.Team)
	PutPlayer(p player.Player)
	DeleteTeam(id string)
	DeletePlayer(id string)
}

// TxFunc may run more than once; it must not keep side effects outside the Tx.
type TxFunc func(ctx context.Context, tx Tx) error

// Subscription delivers committed snapshots. Only the latest undelivered
// snapshot is kept, so a slow reader skips intermediate versions.
type Subscription interface {
	Updates() <-chan Snapshot
	Close()
}

// Store is the transactional document store behind the auction.
type Store interface {
	RunTx(ctx context.Context, fn TxFunc) error
	Snapshot(ctx context.Context) (Snapshot, error)
	// Subscribe delivers the current snapshot immediately, then every commit
	// touching one of topics. No topics means every commit.
	Subscribe(ctx context.Context, topics ...Topic) (Subscription, error)
}
