package tool

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryConfig controls InvokeWithRetry.
type RetryConfig struct {
	Enabled        bool          `json:"enabled"`
	MaxAttempts    int           `json:"max_attempts"`
	InitialBackoff time.Duration `json:"initial_backoff"`
	MaxBackoff     time.Duration `json:"max_backoff"`
}

// DefaultRetryConfig returns the retry policy used by embedders that
// enable retries without tuning them.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Enabled:        true,
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// InvokeWithRetry behaves like Invoke but repeats handler failures and
// timeouts with exponential backoff. Only tools declared idempotent are
// retried; everything else gets a single attempt. Validation and policy
// failures are deterministic and never retried.
func (e *Engine) InvokeWithRetry(ctx context.Context, req Request) Result {
	cfg := e.getRetryConfig()

	result := e.Invoke(ctx, req)
	if result.Success || !cfg.Enabled {
		return result
	}

	def, err := e.registry.Get(req.Tool)
	if err != nil || !def.Idempotent {
		return result
	}

	attempts := 1
	backoff := cfg.InitialBackoff
	for attempts < cfg.MaxAttempts && !result.Success && retryable(result.Error) {
		log.Warn().
			Str("tool", req.Tool).
			Int("attempt", attempts+1).
			Dur("backoff", backoff).
			Str("error_code", string(result.Error.Code)).
			Msg("Retrying invocation")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return result
		}

		backoff *= 2
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}

		attempts++
		req.InvocationID = ""
		result = e.Invoke(ctx, req)
	}

	if attempts > 1 {
		if result.Metadata == nil {
			result.Metadata = make(map[string]interface{})
		}
		result.Metadata["attempts"] = attempts
	}

	return result
}

// retryable reports whether the failure class is worth repeating.
func retryable(terr *Error) bool {
	if terr == nil {
		return false
	}
	return terr.Code == ErrHandlerError || terr.Code == ErrInvocationTimeout
}
