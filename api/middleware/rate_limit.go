package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/faacuromano/control-gastronomicoV2-sub000/api/responses"
	pkgerrors "github.com/faacuromano/control-gastronomicoV2-sub000/pkg/errors"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/logger"
)

// Limiter is the fixed-window counter surface backing the order rate limit.
type Limiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// OrderRateLimit caps order mutations per tenant per window. Redis outages
// fail open: a broken limiter must not stop the restaurant from selling.
func OrderRateLimit(limiter Limiter, limit int64, window time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			tenantID, ok := TenantIDFrom(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			scope := fmt.Sprintf("orders:%s", tenantID)
			allowed, count, err := limiter.FixedWindowAllow(r.Context(), scope, limit, window)
			if err != nil {
				if logg != nil {
					ctx := logg.WithField(r.Context(), "cause", err.Error())
					logg.Warn(ctx, "rate limiter unavailable, failing open")
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if logg != nil {
					ctx := logg.WithFields(r.Context(), map[string]any{
						"tenant_id": tenantID.String(),
						"count":     count,
					})
					logg.Warn(ctx, "order rate limit exceeded")
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many order requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
