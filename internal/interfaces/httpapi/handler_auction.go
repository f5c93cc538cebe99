package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/auction-ledger/internal/bidding"
	"github.com/riskibarqy/auction-ledger/internal/domain/auction"
	"github.com/riskibarqy/auction-ledger/internal/platform/resilience"
	"github.com/riskibarqy/auction-ledger/internal/usecase"
)

var consoleDrainRetry = resilience.RetryConfig{
	MaxAttempts:     20,
	InitialInterval: 10 * time.Millisecond,
	MaxInterval:     200 * time.Millisecond,
}

func (h *Handler) SetCurrentPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SetCurrentPlayer")
	defer span.End()

	var req setCurrentPlayerRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	state, err := h.auctionService.SetCurrentPlayer(ctx, strings.TrimSpace(req.PlayerID))
	if err != nil {
		h.logger.WarnContext(ctx, "set current player failed", "player_id", req.PlayerID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, auctionStateToDTO(state))
}

func (h *Handler) SetRandomCurrentPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SetRandomCurrentPlayer")
	defer span.End()

	var req randomPlayerRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	next, ok, err := h.auctionService.PickRandomPlayer(ctx, strings.TrimSpace(req.ExcludePlayerID))
	if err != nil {
		h.logger.WarnContext(ctx, "pick random player failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: no player left in the pool", usecase.ErrNotFound))
		return
	}

	state, err := h.auctionService.SetCurrentPlayer(ctx, next.ID)
	if err != nil {
		h.logger.WarnContext(ctx, "set random current player failed", "player_id", next.ID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, auctionStateToDTO(state))
}

func (h *Handler) StartAuction(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StartAuction")
	defer span.End()

	state, err := h.auctionService.StartAuction(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "start auction failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, auctionStateToDTO(state))
}

func (h *Handler) StopAuction(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StopAuction")
	defer span.End()

	state, err := h.auctionService.StopAuction(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "stop auction failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, auctionStateToDTO(state))
}

func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PlaceBid")
	defer span.End()

	var req placeBidRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	state, err := h.auctionService.PlaceBid(ctx, usecase.PlaceBidInput{
		TeamID: strings.TrimSpace(req.TeamID),
		Amount: req.Amount,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "place bid failed", "team_id", req.TeamID, "amount", req.Amount, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, auctionStateToDTO(state))
}

func (h *Handler) DeleteBid(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteBid")
	defer span.End()

	index, err := strconv.Atoi(strings.TrimSpace(r.PathValue("index")))
	if err != nil || index < 0 {
		writeError(ctx, w, fmt.Errorf("%w: bid index must be a non-negative integer", usecase.ErrInvalidInput))
		return
	}

	state, err := h.auctionService.DeleteBidAtIndex(ctx, index)
	if err != nil {
		h.logger.WarnContext(ctx, "delete bid failed", "index", index, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, auctionStateToDTO(state))
}

// MarkSold writes any console bids still buffered, then sells the player to
// the last bidder. advance=true puts a random available player on the block.
func (h *Handler) MarkSold(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.MarkSold")
	defer span.End()

	advance, err := queryBool(r, "advance")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.drainConsole(ctx); err != nil {
		h.logger.WarnContext(ctx, "flush console before sale failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	sale, err := h.auctionService.MarkPlayerSold(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "mark player sold failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := saleDTO{
		Player: playerToDTO(sale.Player),
		Team:   teamToDTO(sale.Team),
		Amount: sale.Amount,
	}
	if advance {
		out.NextPlayer = h.advance(ctx, sale.Player.ID)
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}

// MarkUnsold closes a block with no bids. Bids still buffered on the console
// count as bids.
func (h *Handler) MarkUnsold(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.MarkUnsold")
	defer span.End()

	advance, err := queryBool(r, "advance")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if h.console != nil {
		if pending := h.console.PendingCount(); pending > 0 {
			writeError(ctx, w, fmt.Errorf("%w: %d console bids not yet committed", auction.ErrHasBids, pending))
			return
		}
	}

	p, err := h.auctionService.MarkPlayerUnsold(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "mark player unsold failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := unsoldDTO{Player: playerToDTO(p)}
	if advance {
		out.NextPlayer = h.advance(ctx, p.ID)
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}

// drainConsole flushes the console, waiting out a batch that is already
// being written.
func (h *Handler) drainConsole(ctx context.Context) error {
	if h.console == nil {
		return nil
	}
	return resilience.Retry(ctx, consoleDrainRetry, func(err error) bool {
		return errors.Is(err, bidding.ErrFlushInProgress)
	}, h.console.Flush)
}

// advance is best effort: the close already committed, so a failed pick is
// logged and reported as no next player.
func (h *Handler) advance(ctx context.Context, closedID string) *playerDTO {
	next, ok, err := h.auctionService.PickRandomPlayer(ctx, closedID)
	if err != nil {
		h.logger.WarnContext(ctx, "pick next player failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	if _, err := h.auctionService.SetCurrentPlayer(ctx, next.ID); err != nil {
		h.logger.WarnContext(ctx, "advance to next player failed", "player_id", next.ID, "error", err)
		return nil
	}
	dto := playerToDTO(next)
	return &dto
}
