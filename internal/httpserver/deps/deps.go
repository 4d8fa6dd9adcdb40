package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/engage/internal/domain"
	"github.com/MrSnakeDoc/engage/internal/logger"
	"github.com/MrSnakeDoc/engage/internal/ratelimit"
	"github.com/MrSnakeDoc/engage/internal/store"
)

// Engagement is the slice of the coordinator the handlers call.
type Engagement interface {
	Toggle(ctx context.Context, userID, articleID string, kind domain.Kind) (domain.ToggleResult, error)
	RecordView(ctx context.Context, articleID string) (domain.ViewResult, error)
}

type Deps struct {
	Logger           logger.Logger
	StartTime        time.Time
	Version          string
	Commit           string
	BuildDate        string
	GoVersion        string
	TimeNow          func() time.Time    // for testing, defaults to time.Now
	AdminCIDRS       []string            // IPs allowed on /admin (empty = loopback only)
	TrustProxy       bool                // true if running behind a trusted reverse proxy (e.g., cloudflared)
	RateLimit        ratelimit.Config    // per client IP limits on /api
	Engagement       Engagement          // toggles and views
	Articles         store.ArticleGetter // counter reads
	Store            store.Pinger        // readiness probe
	ReconcileTrigger chan struct{}       // Channel to trigger a manual reconciliation (nil if disabled)
}

// Now returns the current time through TimeNow when set.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
