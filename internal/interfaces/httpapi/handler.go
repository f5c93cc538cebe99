package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/riskibarqy/auction-ledger/internal/bidding"
	"github.com/riskibarqy/auction-ledger/internal/domain/ledger"
	"github.com/riskibarqy/auction-ledger/internal/platform/logging"
	"github.com/riskibarqy/auction-ledger/internal/usecase"
)

const maxRequestBodyBytes = 1 << 20

var strictJSON = sonic.Config{DisallowUnknownFields: true}.Froze()

type Handler struct {
	auctionService *usecase.AuctionService
	rosterService  *usecase.RosterService
	boardService   *usecase.BoardService
	console        *bidding.Coordinator
	consoleFeed    *ConsoleFeed
	store          ledger.Store
	upgrader       websocket.Upgrader
	logger         *logging.Logger
	validator      *validator.Validate
}

func NewHandler(
	auctionService *usecase.AuctionService,
	rosterService *usecase.RosterService,
	boardService *usecase.BoardService,
	console *bidding.Coordinator,
	consoleFeed *ConsoleFeed,
	store ledger.Store,
	streamOrigins []string,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		auctionService: auctionService,
		rosterService:  rosterService,
		boardService:   boardService,
		console:        console,
		consoleFeed:    consoleFeed,
		store:          store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(streamOrigins),
		},
		logger:    logger.Named("httpapi.handler"),
		validator: validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// decodeRequest reads a JSON body into dst and validates it. An empty body
// decodes to the zero value so optional payloads can be omitted.
func (h *Handler) decodeRequest(ctx context.Context, r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read request body: %v", usecase.ErrInvalidInput, err)
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := strictJSON.Unmarshal(body, dst); err != nil {
			return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
		}
	}
	return h.validateRequest(ctx, dst)
}

func queryBool(r *http.Request, key string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", usecase.ErrInvalidInput, key)
	}
	return v, nil
}

func originChecker(allowed []string) func(r *http.Request) bool {
	allowAll := len(allowed) == 0
	allowSet := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			allowAll = true
			continue
		}
		if origin != "" {
			allowSet[origin] = struct{}{}
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if allowAll || origin == "" {
			return true
		}
		_, ok := allowSet[origin]
		return ok
	}
}
