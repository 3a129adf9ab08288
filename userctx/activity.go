package userctx

import (
	"context"
	"sync/atomic"
)

const activityKey contextKey = "activity"

// TrackActivity marks the request as one whose mutation may be written to the activity log
func TrackActivity(ctx context.Context) context.Context {
	return context.WithValue(ctx, activityKey, new(atomic.Bool))
}

// SkipActivity keeps the current request out of the activity log. It is a no-op when
// the request is not tracked.
func SkipActivity(ctx context.Context) {
	if skip, ok := ctx.Value(activityKey).(*atomic.Bool); ok {
		skip.Store(true)
	}
}

// ActivitySkipped reports whether SkipActivity was called for the request
func ActivitySkipped(ctx context.Context) bool {
	skip, ok := ctx.Value(activityKey).(*atomic.Bool)
	return ok && skip.Load()
}
