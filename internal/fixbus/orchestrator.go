// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package fixbus

import (
	"context"
	"log/slog"
	"sync"
)

// Orchestrator runs all location providers and publishes their fixes on a Bus.
type Orchestrator struct {
	Bus       *Bus
	Providers []Provider
}

// Track runs every provider in its own goroutine until the context is canceled.
func (o *Orchestrator) Track(ctx context.Context) {
	var wg sync.WaitGroup
	for _, p := range o.Providers {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()
			o.trackProvider(ctx, p)
		}(p)
	}
	<-ctx.Done()
	wg.Wait()
}

// trackProvider continuously reads fixes from a Provider and publishes them on the Bus. Whenever
// the stream ends, the provider is restarted with exponential backoff.
func (o *Orchestrator) trackProvider(ctx context.Context, p Provider) {
	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		lookupChan := o.safeLookup(ctx, p)
		if lookupChan == nil {
			o.Bus.logger.Debug("location provider failed to start", slog.String("source", p.Name()),
				slog.Duration("backoff", backoff))
			if !sleepOrDone(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

	stream:
		for {
			select {
			case <-ctx.Done():
				return
			case f, ok := <-lookupChan:
				if !ok {
					if !sleepOrDone(ctx, backoff) {
						return
					}
					backoff = nextBackoff(backoff)
					break stream
				}
				if f.Source == "" {
					f.Source = p.Name()
				}
				o.Bus.Publish(f)
				backoff = initialBackoff
			}
		}
	}
}

// safeLookup invokes LookupStream on a Provider and recovers from potential panics.
// Returns nil if the provider could not be started.
func (o *Orchestrator) safeLookup(ctx context.Context, provider Provider) (ch <-chan Fix) {
	defer func() {
		if r := recover(); r != nil {
			o.Bus.logger.Error("location provider panicked", slog.String("source", provider.Name()),
				slog.Any("panic", r))
			ch = nil
		}
	}()
	return provider.LookupStream(ctx)
}
