package httpapi

import (
	"net/http"

	"github.com/riskibarqy/auction-ledger/internal/platform/logging"
)

// RouterOptions toggles the optional parts of the HTTP surface.
type RouterOptions struct {
	SwaggerEnabled     bool
	CORSAllowedOrigins []string
	// AdminAuthEnabled puts every /v1/admin route behind a bearer token.
	AdminAuthEnabled bool
}

func NewRouter(
	handler *Handler,
	verifier TokenVerifier,
	logger *logging.Logger,
	opts RouterOptions,
) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.Named("httpapi")

	var admin middleware = passThrough
	if opts.AdminAuthEnabled {
		admin = func(next http.Handler) http.Handler {
			return RequireAuth(verifier, next)
		}
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler, opts.SwaggerEnabled)
	registerPublicRoutes(mux, handler)
	registerAdminRosterRoutes(mux, handler, admin)
	registerAdminAuctionRoutes(mux, handler, admin)
	registerAdminConsoleRoutes(mux, handler, admin)

	return RequestTracing(RequestLogging(logger, CORS(opts.CORSAllowedOrigins, recoverPanic(logger, mux))))
}

func passThrough(next http.Handler) http.Handler {
	return next
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.recoverPanic")
		defer span.End()

		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.ErrorContext(ctx, "panic recovered", "panic", rec)
				writeInternalError(ctx, w)
			}
		}()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
