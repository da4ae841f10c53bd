package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tapline/tapline-backend/api/responses"
	pkgerrors "github.com/tapline/tapline-backend/pkg/errors"
	"github.com/tapline/tapline-backend/pkg/logger"
)

const (
	// A busy terminal fires a handful of mutations per second at peak;
	// anything past this is a runaway client.
	terminalRateLimit  = 300
	terminalRateWindow = time.Minute
)

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit throttles each terminal with a fixed window counter.
// Requests without a terminal identity pass through; Auth rejects those
// upstream.
func RateLimit(store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			terminalID := TerminalIDFromContext(r.Context())
			if terminalID == "" {
				next.ServeHTTP(w, r)
				return
			}

			scope := fmt.Sprintf("terminal:%s", terminalID)
			allowed, count, err := store.FixedWindowAllow(r.Context(), scope, terminalRateLimit, terminalRateWindow)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !allowed {
				if logg != nil {
					ctx := logg.WithFields(r.Context(), map[string]any{
						"terminal_id": terminalID,
						"count":       count,
						"limit":       terminalRateLimit,
					})
					logg.Warn(ctx, "terminal rate limited")
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests; slow down"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
