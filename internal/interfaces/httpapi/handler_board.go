package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/riskibarqy/auction-ledger/internal/domain/player"
	"github.com/riskibarqy/auction-ledger/internal/usecase"
)

func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetBoard")
	defer span.End()

	board, err := h.boardService.Board(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "get board failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, boardToDTO(ctx, board))
}

func (h *Handler) ListAvailablePlayers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListAvailablePlayers")
	defer span.End()

	players, err := h.boardService.AvailablePlayers(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list available players failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, playersToDTO(players))
}

func (h *Handler) ListCompletedPlayers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListCompletedPlayers")
	defer span.End()

	order, ok := player.ParseCompletedSort(strings.TrimSpace(r.URL.Query().Get("sort")))
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: sort must be one of timeDesc, timeAsc, priceDesc, priceAsc", usecase.ErrInvalidInput))
		return
	}

	players, err := h.boardService.CompletedPlayers(ctx, order)
	if err != nil {
		h.logger.ErrorContext(ctx, "list completed players failed", "sort", order, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, playersToDTO(players))
}
