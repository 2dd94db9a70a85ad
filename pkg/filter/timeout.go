package filter

import (
	"context"
	"fmt"
	"time"
)

// EvalTimeout is the hard limit for evaluating the filter on one component.
const EvalTimeout = 2 * time.Second

type evalResult struct {
	match bool
	err   error
}

// waitWithTimeout waits for a result from ch, giving up after EvalTimeout
// or when ctx is done. On timeout the evaluating goroutine keeps running;
// its result is dropped into the buffered channel and discarded.
func waitWithTimeout(ctx context.Context, ch <-chan evalResult) (bool, error) {
	timer := time.NewTimer(EvalTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.match, res.err
	case <-timer.C:
		return false, fmt.Errorf("filter: evaluation timed out after %s", EvalTimeout)
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
