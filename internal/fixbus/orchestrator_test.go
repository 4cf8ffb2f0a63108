// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package fixbus

import (
	"context"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"
)

type mockProvider struct {
	fixes       []Fix
	shouldPanic bool
	calls       atomic.Int32
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) LookupStream(ctx context.Context) <-chan Fix {
	m.calls.Add(1)
	if m.shouldPanic {
		panic("intentionally panicking")
	}
	out := make(chan Fix)
	go func() {
		defer close(out)
		for _, f := range m.fixes {
			select {
			case <-ctx.Done():
				return
			case out <- f:
			}
		}
	}()
	return out
}

func TestOrchestrator_Track(t *testing.T) {
	t.Run("fixes from providers are published on the bus", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			bus := testBus(t, Options{})
			sub, unsub := bus.Subscribe(4)
			defer unsub()

			provider := &mockProvider{fixes: []Fix{{Lat: 1, Lon: 2, Time: time.Now()}}}
			orch := bus.NewOrchestrator([]Provider{provider})
			go orch.Track(ctx)

			select {
			case f := <-sub:
				if f.Lat != 1 || f.Lon != 2 {
					t.Errorf("unexpected fix received: %+v", f)
				}
				if f.Source != "mock" {
					t.Errorf("expected source to be filled with provider name, got %q", f.Source)
				}
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for fix")
			}
			cancel()
			synctest.Wait()
		})
	})
	t.Run("closed streams are restarted with backoff", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			bus := testBus(t, Options{})
			provider := &mockProvider{}
			orch := bus.NewOrchestrator([]Provider{provider})
			go orch.Track(ctx)

			// 1s + 2s + 4s of backoff allow four lookups
			time.Sleep(initialBackoff*7 + time.Millisecond)
			synctest.Wait()
			if got := provider.calls.Load(); got != 4 {
				t.Errorf("expected provider to be started 4 times, got %d", got)
			}
			cancel()
			synctest.Wait()
		})
	})
	t.Run("panicking provider does not crash the orchestrator", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			bus := testBus(t, Options{})
			provider := &mockProvider{shouldPanic: true}
			orch := bus.NewOrchestrator([]Provider{provider})
			go orch.Track(ctx)

			time.Sleep(initialBackoff + time.Millisecond)
			synctest.Wait()
			if got := provider.calls.Load(); got < 2 {
				t.Errorf("expected provider to be retried, got %d calls", got)
			}
			cancel()
			synctest.Wait()
		})
	})
}
