package mw

import (
	"math"
	"net/http"
	"strconv"

	"github.com/MrSnakeDoc/engage/internal/ratelimit"
	"github.com/MrSnakeDoc/engage/internal/utils"
)

// RateLimit limits requests per client IP. Denied requests get a 429 with
// Retry-After in whole seconds.
func RateLimit(cfg ratelimit.Config, trustProxy bool) func(http.Handler) http.Handler {
	return rateLimit(ratelimit.New(cfg), trustProxy)
}

func rateLimit(l *ratelimit.KeyedRateLimiter, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := l.Allow(utils.ClientIP(r, trustProxy))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

			if !d.Allowed {
				retry := int(math.Ceil(d.RetryAfter.Seconds()))
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
