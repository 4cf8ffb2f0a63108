// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package gpsd

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/stratoberry/go-gpsd"

	"github.com/wneessen/waybar-speed/internal/fixbus"
	"github.com/wneessen/waybar-speed/internal/gpspoll"
	"github.com/wneessen/waybar-speed/internal/logger"
)

const (
	name = "gpsd"

	ModeWatch = "watch"
	ModePoll  = "poll"
)

// GPSDProvider streams fixes from a gpsd daemon. In watch mode it keeps a session open and
// forwards every TPV report, in poll mode it asks gpsd for a single report every period.
type GPSDProvider struct {
	name     string
	addr     string
	mode     string
	period   time.Duration
	logger   *logger.Logger
	locateFn func(ctx context.Context) (gpspoll.Fix, error)
}

// NewGPSDProvider returns a provider for the gpsd instance at host:port.
func NewGPSDProvider(log *logger.Logger, host, port, mode string, period time.Duration) *GPSDProvider {
	provider := &GPSDProvider{
		name:   name,
		addr:   net.JoinHostPort(host, port),
		mode:   strings.ToLower(mode),
		period: period,
		logger: log,
	}
	client := gpspoll.New(host, port)
	provider.locateFn = client.Poll
	return provider
}

func (p *GPSDProvider) Name() string {
	return p.name
}

func (p *GPSDProvider) LookupStream(ctx context.Context) <-chan fixbus.Fix {
	if p.mode == ModePoll {
		return p.pollStream(ctx)
	}
	return p.watchStream(ctx)
}

// pollStream polls gpsd for a TPV report every period.
func (p *GPSDProvider) pollStream(ctx context.Context) <-chan fixbus.Fix {
	out := make(chan fixbus.Fix)

	go func() {
		defer close(out)
		firstRun := true

		for {
			if !firstRun {
				select {
				case <-ctx.Done():
					return
				case <-time.After(p.period):
				}
			}
			firstRun = false

			ctxPoll, cancelPoll := context.WithTimeout(ctx, p.period)
			fix, err := p.locateFn(ctxPoll)
			cancelPoll()
			if err != nil {
				p.logger.Debug("failed to poll gpsd", slog.String("addr", p.addr), logger.Err(err))
				continue
			}

			// Need at least 2D fix
			if !fix.Has2DFix() {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- p.createFix(fix):
			}
		}
	}()

	return out
}

// watchStream opens a gpsd session and forwards every TPV report with at least a 2D fix.
func (p *GPSDProvider) watchStream(ctx context.Context) <-chan fixbus.Fix {
	out := make(chan fixbus.Fix)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			session, err := gpsd.Dial(p.addr)
			if err != nil {
				p.logger.Error("failed to connect to gpsd", slog.String("addr", p.addr), logger.Err(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(p.period):
					continue
				}
			}

			session.AddFilter("TPV", func(r interface{}) {
				tpv, ok := r.(*gpsd.TPVReport)
				if !ok {
					return
				}
				fix := fixFromTPV(tpv)
				if !fix.Has2DFix() {
					return
				}

				select {
				case <-ctx.Done():
				case out <- p.createFix(fix):
				}
			})

			// Watch() returns a channel that is signaled when the session ends (e.g. connection lost).
			done := session.Watch()

			select {
			case <-ctx.Done():
				// go-gpsd has no Close(); the session goroutine ends with the process.
				return
			case <-done:
				p.logger.Debug("gpsd session ended, reconnecting", slog.String("addr", p.addr))
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(p.period):
			}
		}
	}()

	return out
}

// createFix converts a gpsd fix into a bus fix.
func (p *GPSDProvider) createFix(in gpspoll.Fix) fixbus.Fix {
	at := in.Time
	if at.IsZero() {
		at = time.Now()
	}
	return fixbus.Fix{
		Lat:            in.Lat,
		Lon:            in.Lon,
		Alt:            in.Alt,
		AccuracyMeters: in.Acc,
		Time:           at,
		ReportedSpeed:  in.Speed,
		Course:         in.Track,
		Source:         p.name,
	}
}

func fixFromTPV(tpv *gpsd.TPVReport) gpspoll.Fix {
	mode := int(tpv.Mode)
	fix := gpspoll.Fix{
		Lat:  tpv.Lat,
		Lon:  tpv.Lon,
		Alt:  tpv.Alt,
		Acc:  gpspoll.HorizontalAccuracy(mode, 0, tpv.Epx, tpv.Epy),
		Mode: mode,
		Time: tpv.Time,
	}
	if mode >= int(gpsd.Mode2D) {
		fix.Speed.Set(tpv.Speed)
		fix.Track.Set(tpv.Track)
	}
	return fix
}
