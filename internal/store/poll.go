package store

import (
	"context"
	"reflect"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPollInterval is used by backends without change notifications.
const DefaultPollInterval = 5 * time.Second

// Poll emulates a watch for backends that cannot push changes. It lists once
// synchronously, then every interval, and calls fn whenever the result
// differs from the previous one. List errors are logged and retried on the
// next tick.
func Poll[T any](ctx context.Context, interval time.Duration, log zerolog.Logger, list func(context.Context) ([]T, error), fn func([]T)) (Unsubscribe, error) {
	initial, err := list(ctx)
	if err != nil {
		return nil, err
	}
	fn(initial)

	if interval <= 0 {
		interval = DefaultPollInterval
	}
	pollCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		prev := initial
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				cur, err := list(pollCtx)
				if err != nil {
					if pollCtx.Err() == nil {
						log.Warn().Err(err).Msg("Watch poll failed")
					}
					continue
				}
				if !reflect.DeepEqual(prev, cur) {
					prev = cur
					fn(cur)
				}
			}
		}
	}()

	return Once(func() {
		cancel()
		<-done
	}), nil
}
