package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultAsyncTimeout bounds one background delivery
const DefaultAsyncTimeout = 30 * time.Second

// Async hands events to next in a background goroutine so slow destinations
// stay off the request path. Delivery runs on a context detached from the
// caller's and bounded by timeout; failures are logged.
type Async struct {
	next    Publisher
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAsync wraps next. A non-positive timeout uses DefaultAsyncTimeout.
func NewAsync(next Publisher, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = DefaultAsyncTimeout
	}
	return &Async{next: next, timeout: timeout}
}

// Publish implements Publisher. It never blocks on next and never fails.
func (a *Async) Publish(ctx context.Context, ev Event) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		if err := a.next.Publish(dctx, ev); err != nil {
			slog.Warn("notify_event", "event", "async_publish_failed", "type", ev.Type, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every queued delivery has finished
func (a *Async) Wait() {
	a.wg.Wait()
}
