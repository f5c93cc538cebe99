package anubis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/auction-ledger/internal/domain/user"
	"github.com/riskibarqy/auction-ledger/internal/platform/cache"
	"github.com/riskibarqy/auction-ledger/internal/platform/logging"
	"github.com/riskibarqy/auction-ledger/internal/platform/resilience"
	"github.com/riskibarqy/auction-ledger/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var errAnubisTransient = errors.New("anubis transient failure")

type Config struct {
	BaseURL        string
	IntrospectPath string
	AdminKey       string
	Timeout        time.Duration
	CircuitBreaker resilience.CircuitBreakerConfig
	// CacheTTL keeps verified principals per token hash. Zero disables caching.
	CacheTTL time.Duration
}

// Client verifies admin bearer tokens through anubis token introspection.
type Client struct {
	httpClient    *http.Client
	introspectURL string
	adminKey      string
	breaker       *resilience.CircuitBreaker
	cache         *cache.Store[user.Principal]
	logger        *logging.Logger
}

func NewClient(httpClient *http.Client, cfg Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}

	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	c := &Client{
		httpClient:    httpClient,
		introspectURL: buildURL(cfg.BaseURL, cfg.IntrospectPath),
		adminKey:      strings.TrimSpace(cfg.AdminKey),
		logger:        logger.Named("anubis"),
	}
	if cfg.CircuitBreaker.Enabled {
		c.breaker = resilience.NewCircuitBreaker(cfg.CircuitBreaker)
	}
	if cfg.CacheTTL > 0 {
		c.cache = cache.NewStore[user.Principal](cfg.CacheTTL)
	}
	return c
}

func (c *Client) VerifyAccessToken(ctx context.Context, token string) (user.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return user.Principal{}, fmt.Errorf("%w: token is required", usecase.ErrUnauthorized)
	}

	cacheKey := hashToken(token)
	if c.cache != nil {
		if principal, ok := c.cache.Get(ctx, cacheKey); ok {
			return principal, nil
		}
	}

	var principal user.Principal
	introspect := func(ctx context.Context) error {
		var err error
		principal, err = c.introspect(ctx, token)
		return err
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(ctx, isCircuitFailure, introspect)
	} else {
		err = introspect(ctx)
	}
	switch {
	case err == nil:
	case errors.Is(err, resilience.ErrCircuitOpen):
		return user.Principal{}, fmt.Errorf("%w: anubis circuit is open", usecase.ErrDependencyUnavailable)
	case errors.Is(err, errAnubisTransient):
		c.logger.WarnContext(ctx, "anubis introspection unavailable", "error", err)
		return user.Principal{}, fmt.Errorf("%w: %w", usecase.ErrDependencyUnavailable, err)
	default:
		return user.Principal{}, err
	}

	if c.cache != nil {
		c.cache.Set(ctx, cacheKey, principal)
	}
	return principal, nil
}

func (c *Client) introspect(ctx context.Context, token string) (user.Principal, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(introspectRequest{Token: token}); err != nil {
		return user.Principal{}, crerr.Wrap(err, "marshal introspect request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.introspectURL, bytes.NewReader(buf.B))
	if err != nil {
		return user.Principal{}, crerr.Wrap(err, "create introspect request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.adminKey != "" {
		req.Header.Set("x-admin-key", c.adminKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return user.Principal{}, crerr.Mark(crerr.Wrap(err, "request introspection to anubis"), errAnubisTransient)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return user.Principal{}, crerr.Mark(crerr.Wrap(err, "read introspect response"), errAnubisTransient)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return user.Principal{}, fmt.Errorf("%w: introspection denied", usecase.ErrUnauthorized)
	case resp.StatusCode == http.StatusForbidden:
		// The admin key was refused: a deployment problem, not a bad caller.
		c.logger.ErrorContext(ctx, "anubis rejected admin key", "status_code", resp.StatusCode)
		return user.Principal{}, fmt.Errorf("%w: anubis rejected the admin key", usecase.ErrDependencyUnavailable)
	case resp.StatusCode >= http.StatusInternalServerError:
		return user.Principal{}, crerr.Mark(crerr.Newf("anubis introspection failed with status %d", resp.StatusCode), errAnubisTransient)
	case resp.StatusCode != http.StatusOK:
		c.logger.WarnContext(ctx, "anubis introspection non-200", "status_code", resp.StatusCode)
		return user.Principal{}, crerr.Newf("anubis introspection failed with status %d", resp.StatusCode)
	}

	var decoded introspectResponse
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		return user.Principal{}, crerr.Wrap(err, "unmarshal introspect response")
	}
	if !decoded.Active {
		return user.Principal{}, fmt.Errorf("%w: inactive token", usecase.ErrUnauthorized)
	}
	if strings.TrimSpace(decoded.UserID) == "" {
		return user.Principal{}, crerr.New("invalid introspect response: user_id is empty")
	}

	return user.Principal{
		UserID: decoded.UserID,
		Email:  decoded.Email,
		Roles:  decoded.Roles,
	}, nil
}

type introspectRequest struct {
	Token string `json:"token"`
}

type introspectResponse struct {
	Active bool     `json:"active"`
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
}
