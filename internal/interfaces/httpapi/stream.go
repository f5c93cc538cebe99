package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/riskibarqy/auction-ledger/internal/bidding"
	"github.com/riskibarqy/auction-ledger/internal/domain/auction"
	"github.com/riskibarqy/auction-ledger/internal/domain/ledger"
	"github.com/riskibarqy/auction-ledger/internal/domain/tournament"
	"github.com/riskibarqy/auction-ledger/internal/usecase"
)

const (
	streamWriteTimeout   = 10 * time.Second
	streamReadTimeout    = 60 * time.Second
	streamPingInterval   = 30 * time.Second
	streamMaxMessageSize = 1024

	consoleStreamTopic = "console"
)

type streamEventDTO struct {
	Topic   string `json:"topic"`
	Version uint64 `json:"version"`
	Data    any    `json:"data"`
}

// Stream upgrades to a websocket and pushes the topic's slice of the ledger:
// the current value first, then every committed change. Viewers that fall
// behind skip straight to the latest version.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Stream")
	defer span.End()

	raw := strings.TrimSpace(r.PathValue("topic"))
	topic, ok := ledger.ParseTopic(raw)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: unknown stream topic %q", usecase.ErrInvalidInput, raw))
		return
	}

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	sub, err := h.store.Subscribe(streamCtx, topic)
	if err != nil {
		h.logger.ErrorContext(ctx, "subscribe stream failed", "topic", topic, "error", err)
		writeError(ctx, w, fmt.Errorf("%w: subscribe %s: %v", usecase.ErrDependencyUnavailable, topic, err))
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.WarnContext(ctx, "websocket upgrade failed", "topic", topic, "error", err)
		return
	}
	defer conn.Close()

	h.logger.InfoContext(ctx, "stream opened", "topic", topic, "remote_addr", r.RemoteAddr)
	go h.readStream(conn, cancel)
	if err := h.writeStream(streamCtx, conn, topic, sub); err != nil {
		h.logger.DebugContext(ctx, "stream closed", "topic", topic, "error", err)
	}
}

// readStream only services control frames; it cancels the stream once the
// peer goes away.
func (h *Handler) readStream(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(streamMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("unexpected stream close", "error", err)
			}
			return
		}
	}
}

// ConsoleStream pushes the bid console's optimistic projection: the current
// one first, then every accepted bid, flush and discard.
func (h *Handler) ConsoleStream(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ConsoleStream")
	defer span.End()

	if h.console == nil || h.consoleFeed == nil {
		writeError(ctx, w, fmt.Errorf("%w: bid console is disabled", usecase.ErrDependencyUnavailable))
		return
	}

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	sub := h.consoleFeed.subscribe(h.console.Projection)
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(ctx, "websocket upgrade failed", "stream", "console", "error", err)
		return
	}
	defer conn.Close()

	h.logger.InfoContext(ctx, "console stream opened", "remote_addr", r.RemoteAddr)
	go h.readStream(conn, cancel)
	err = writeFrames(streamCtx, conn, sub.Updates(), func(p bidding.Projection) ([]byte, error) {
		return sonic.Marshal(streamEventDTO{
			Topic:   consoleStreamTopic,
			Version: p.Version,
			Data:    projectionToDTO(p),
		})
	})
	if err != nil {
		h.logger.DebugContext(ctx, "console stream closed", "error", err)
	}
}

func (h *Handler) writeStream(ctx context.Context, conn *websocket.Conn, topic ledger.Topic, sub ledger.Subscription) error {
	return writeFrames(ctx, conn, sub.Updates(), func(snap ledger.Snapshot) ([]byte, error) {
		return sonic.Marshal(streamEventDTO{
			Topic:   string(topic),
			Version: snap.Version,
			Data:    topicData(topic, snap),
		})
	})
}

// writeFrames sends one text frame per update and pings the peer between
// updates. It returns nil once ctx is done or updates is closed.
func writeFrames[T any](ctx context.Context, conn *websocket.Conn, updates <-chan T, encode func(T) ([]byte, error)) error {
	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(streamWriteTimeout))
			return nil
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("write ping: %w", err)
			}
		case v, ok := <-updates:
			if !ok {
				return nil
			}
			payload, err := encode(v)
			if err != nil {
				return fmt.Errorf("encode event: %w", err)
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return fmt.Errorf("write event: %w", err)
			}
		}
	}
}

func topicData(topic ledger.Topic, snap ledger.Snapshot) any {
	switch topic {
	case ledger.TopicTournament:
		t := snap.Tournament
		if !snap.HasTournament {
			t = tournament.Default()
		}
		return tournamentToDTO(t)
	case ledger.TopicAuctionState:
		state := snap.Auction
		if !snap.HasAuction {
			state = auction.IdleState()
		}
		return auctionStateToDTO(state)
	case ledger.TopicTeams:
		return teamsToDTO(snap.Teams)
	default:
		return playersToDTO(snap.Players)
	}
}
