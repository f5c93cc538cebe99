package resilience

import "time"

// Ledger transactions conflict when two writers touch the same document;
// retries are short and frequent because the losing writer only re-reads.
const (
	defaultRetryAttempts        = 10
	defaultRetryInitialInterval = 5 * time.Millisecond
	defaultRetryMaxInterval     = 250 * time.Millisecond
)

// The breaker guards token introspection, where one admin console hammering
// a dead auth service should fail fast instead of stacking timeouts.
const (
	defaultBreakerFailures    = 5
	defaultBreakerOpenTimeout = 15 * time.Second
	defaultBreakerTrials      = 2
)

// RetryConfig bounds a retry loop around a transient failure.
type RetryConfig struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// OnRetry is called before each sleep with the failed attempt's error.
	OnRetry func(err error, wait time.Duration)
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     defaultRetryAttempts,
		InitialInterval: defaultRetryInitialInterval,
		MaxInterval:     defaultRetryMaxInterval,
	}
}

// withDefaults fills unset fields. MaxInterval never drops below
// InitialInterval.
func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = defaultRetryAttempts
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = defaultRetryInitialInterval
	}
	if c.MaxInterval < c.InitialInterval {
		c.MaxInterval = max(defaultRetryMaxInterval, c.InitialInterval)
	}
	return c
}

type CircuitBreakerConfig struct {
	Enabled bool
	// FailureThreshold consecutive countable failures open the breaker.
	FailureThreshold int
	OpenTimeout      time.Duration
	// HalfOpenMaxReq trial requests must all succeed before the breaker closes.
	HalfOpenMaxReq int
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: defaultBreakerFailures,
		OpenTimeout:      defaultBreakerOpenTimeout,
		HalfOpenMaxReq:   defaultBreakerTrials,
	}
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if c.FailureThreshold < 1 {
		c.FailureThreshold = defaultBreakerFailures
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = defaultBreakerOpenTimeout
	}
	if c.HalfOpenMaxReq < 1 {
		c.HalfOpenMaxReq = defaultBreakerTrials
	}
	return c
}
