// Package ratelimit implements a fixed-window request counter keyed by an
// opaque identifier. It is an abuse-mitigation heuristic, not a security
// boundary: the caller is trusted to supply a stable identifier (such as a
// verified Telegram user id) and counters do not survive a restart of
// their backing store.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Result is the outcome of one Check call.
type Result struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// Limiter bounds repeated actions per identifier within a fixed window.
// The first action in a window creates a counter that expires at
// now+window; once the counter reaches max, further actions are denied
// until the window rolls over, at which point the entry is replaced as if
// it were the first action.
type Limiter interface {
	Check(ctx context.Context, identifier string, max int, window time.Duration) (Result, error)
}

// UserKey builds the conventional identifier for per-user action limits.
func UserKey(telegramID int64, action string) string {
	if action == "" {
		action = "default"
	}
	return fmt.Sprintf("telegram:%d:%s", telegramID, action)
}
