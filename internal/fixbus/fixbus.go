// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package fixbus

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/wneessen/waybar-speed/internal/logger"
	"github.com/wneessen/waybar-speed/internal/speed"
	"github.com/wneessen/waybar-speed/internal/vartype"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

const (
	// AccuracyThreshold is the accuracy gain in meters another source needs to take over from the
	// source that is currently delivering fixes.
	AccuracyThreshold = 5.0

	// AccuracyUnknown is used by providers that cannot tell the accuracy of a fix.
	AccuracyUnknown = 1e6
)

var ErrNoLogger = errors.New("logger is required")

// Provider defines an interface for location sources that stream fixes.
type Provider interface {
	Name() string
	LookupStream(ctx context.Context) <-chan Fix
}

// Fix represents a location sample as delivered by a Provider. ReportedSpeed (m/s) and Course
// (degrees from true north) are only set if the source reports them.
type Fix struct {
	Lat, Lon       float64
	Alt            float64
	AccuracyMeters float64
	Time           time.Time
	ReportedSpeed  vartype.VarFloat64
	Course         vartype.VarFloat64
	Source         string
}

// Options configures the update throttling of the Bus. A fix is only delivered to subscribers if
// at least MinInterval passed and at least MinDistance meters were covered since the last
// delivered fix. SourceTTL is the time after which a silent source loses its priority.
type Options struct {
	MinInterval time.Duration
	MinDistance float64
	SourceTTL   time.Duration
}

// Bus fans out fixes from all providers to its subscribers.
type Bus struct {
	mu          sync.RWMutex
	logger      *logger.Logger
	opts        Options
	last        Fix
	haveLast    bool
	lastSeen    map[string]time.Time
	subscribers map[chan Fix]struct{}
}

// Valid checks if the fix coordinates are within the WGS84 bounds.
func (f Fix) Valid() bool {
	return f.Lat >= -90 && f.Lat <= 90 && f.Lon >= -180 && f.Lon <= 180
}

// SpeedFix converts the Fix into the sample type used by the speed estimator.
func (f Fix) SpeedFix() speed.Fix {
	return speed.Fix{
		Latitude:        f.Lat,
		Longitude:       f.Lon,
		TimestampMillis: f.Time.UnixMilli(),
	}
}

// DistanceTo returns the great-circle distance to other in meters.
func (f Fix) DistanceTo(other Fix) float64 {
	return speed.Distance(f.SpeedFix(), other.SpeedFix())
}

// BetterThan reports whether the fix is more accurate than prev by more than AccuracyThreshold.
func (f Fix) BetterThan(prev Fix) bool {
	return f.AccuracyMeters < prev.AccuracyMeters-AccuracyThreshold
}

// New initializes and returns a new Bus.
func New(log *logger.Logger, opts Options) (*Bus, error) {
	if log == nil {
		return nil, ErrNoLogger
	}
	return &Bus{
		logger:      log,
		opts:        opts,
		lastSeen:    make(map[string]time.Time),
		subscribers: make(map[chan Fix]struct{}),
	}, nil
}

func (b *Bus) NewOrchestrator(providers []Provider) *Orchestrator {
	return &Orchestrator{
		Bus:       b,
		Providers: providers,
	}
}

// Subscribe adds a subscriber with the given buffer size and returns the fix channel and an
// unsubscribe function. Unsubscribing closes the channel. Subscribers that do not keep up lose
// fixes instead of blocking the bus.
func (b *Bus) Subscribe(size int) (<-chan Fix, func()) {
	fixChan := make(chan Fix, size)
	b.mu.Lock()
	b.subscribers[fixChan] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, fixChan)
			b.mu.Unlock()
			close(fixChan)
		})
	}

	return fixChan, unsub
}

// Publish offers a fix to the bus. It returns true if the fix was delivered to the subscribers.
func (b *Bus) Publish(f Fix) bool {
	if !f.Valid() {
		b.logger.Debug("dropping fix with invalid coordinates", slog.Float64("lat", f.Lat),
			slog.Float64("lon", f.Lon), slog.String("source", f.Source))
		return false
	}
	now := time.Now()
	if f.Time.IsZero() {
		f.Time = now
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastSeen[f.Source] = now
	if b.haveLast && !b.accept(f, now) {
		return false
	}

	b.last = f
	b.haveLast = true
	for ch := range b.subscribers {
		select {
		case ch <- f:
		default:
		}
	}
	return true
}

// Latest returns the last delivered fix.
func (b *Bus) Latest() (Fix, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last, b.haveLast
}

// accept decides if f replaces the last delivered fix. The caller must hold the lock.
func (b *Bus) accept(f Fix, now time.Time) bool {
	if f.Source != b.last.Source && b.sourceAlive(b.last.Source, now) && !f.BetterThan(b.last) {
		return false
	}
	if b.opts.MinInterval > 0 && f.Time.Sub(b.last.Time) < b.opts.MinInterval {
		return false
	}
	if b.opts.MinDistance > 0 && f.DistanceTo(b.last) < b.opts.MinDistance {
		return false
	}
	return true
}

func (b *Bus) sourceAlive(source string, now time.Time) bool {
	if b.opts.SourceTTL <= 0 {
		return true
	}
	seen, ok := b.lastSeen[source]
	return ok && now.Sub(seen) <= b.opts.SourceTTL
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d *= 2; d > maxBackoff {
		return maxBackoff
	}
	return d
}
