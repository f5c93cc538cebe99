package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/riskibarqy/auction-ledger/internal/usecase"
)

func (h *Handler) GetConsole(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetConsole")
	defer span.End()

	if h.console == nil {
		writeError(ctx, w, fmt.Errorf("%w: bid console is disabled", usecase.ErrDependencyUnavailable))
		return
	}

	writeSuccess(ctx, w, http.StatusOK, projectionToDTO(h.console.Projection()))
}

// ProposeConsoleBid buffers a bid on the console. It is acknowledged before
// it reaches the ledger.
func (h *Handler) ProposeConsoleBid(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ProposeConsoleBid")
	defer span.End()

	if h.console == nil {
		writeError(ctx, w, fmt.Errorf("%w: bid console is disabled", usecase.ErrDependencyUnavailable))
		return
	}

	var req placeBidRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	proj, err := h.console.ProposeBid(ctx, strings.TrimSpace(req.TeamID), req.Amount)
	if err != nil {
		h.logger.WarnContext(ctx, "propose console bid failed", "team_id", req.TeamID, "amount", req.Amount, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusAccepted, projectionToDTO(proj))
}

// SyncConsole writes every buffered console bid now.
func (h *Handler) SyncConsole(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SyncConsole")
	defer span.End()

	if h.console == nil {
		writeError(ctx, w, fmt.Errorf("%w: bid console is disabled", usecase.ErrDependencyUnavailable))
		return
	}

	if err := h.console.Flush(ctx); err != nil {
		h.logger.WarnContext(ctx, "sync console failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, projectionToDTO(h.console.Projection()))
}
