// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package httpfix provides a location provider that polls a JSON endpoint, e.g. a phone
// companion app that shares its GPS position on the local network.
package httpfix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/wneessen/waybar-speed/internal/fixbus"
	httpclient "github.com/wneessen/waybar-speed/internal/http"
	"github.com/wneessen/waybar-speed/internal/logger"
)

const (
	name          = "httpfix"
	lookupTimeout = time.Second * 5
)

var ErrNoHTTPClient = errors.New("http client is required")

// APIResult is the JSON document served by the location endpoint. Speed is in m/s.
type APIResult struct {
	Lat      float64   `json:"lat"`
	Lon      float64   `json:"lon"`
	Alt      float64   `json:"alt"`
	Accuracy float64   `json:"accuracy"`
	Speed    *float64  `json:"speed,omitempty"`
	Time     time.Time `json:"time"`
}

type HTTPFixProvider struct {
	name     string
	url      string
	http     *httpclient.Client
	period   time.Duration
	logger   *logger.Logger
	locateFn func(ctx context.Context) (APIResult, error)
}

func NewHTTPFixProvider(log *logger.Logger, client *httpclient.Client, url string, period time.Duration,
) (*HTTPFixProvider, error) {
	if client == nil {
		return nil, ErrNoHTTPClient
	}
	provider := &HTTPFixProvider{
		name:   name,
		url:    url,
		http:   client,
		period: period,
		logger: log,
	}
	provider.locateFn = provider.locate
	return provider, nil
}

func (p *HTTPFixProvider) Name() string {
	return p.name
}

// LookupStream polls the endpoint every period and emits a fix whenever the position or the
// fix time changed.
func (p *HTTPFixProvider) LookupStream(ctx context.Context) <-chan fixbus.Fix {
	out := make(chan fixbus.Fix)
	go func() {
		defer close(out)
		var last APIResult
		haveLast := false
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

			result, err := p.locateFn(ctx)
			if err != nil {
				p.logger.Debug("failed to fetch location", slog.String("url", p.url), logger.Err(err))
				continue
			}
			if haveLast && !changed(last, result) {
				continue
			}
			last, haveLast = result, true

			select {
			case <-ctx.Done():
				return
			case out <- p.createFix(result):
			}
		}
	}()
	return out
}

func (p *HTTPFixProvider) createFix(result APIResult) fixbus.Fix {
	fix := fixbus.Fix{
		Lat:            result.Lat,
		Lon:            result.Lon,
		Alt:            result.Alt,
		AccuracyMeters: result.Accuracy,
		Time:           result.Time,
		Source:         p.name,
	}
	if fix.AccuracyMeters <= 0 {
		fix.AccuracyMeters = fixbus.AccuracyUnknown
	}
	if fix.Time.IsZero() {
		fix.Time = time.Now()
	}
	if result.Speed != nil {
		fix.ReportedSpeed.Set(*result.Speed)
	}
	return fix
}

func (p *HTTPFixProvider) locate(ctx context.Context) (APIResult, error) {
	ctxHttp, cancelHttp := context.WithTimeout(ctx, lookupTimeout)
	defer cancelHttp()

	result := new(APIResult)
	code, err := p.http.Get(ctxHttp, p.url, result, nil, nil)
	if err != nil {
		return APIResult{}, fmt.Errorf("failed to get location from endpoint: %w", err)
	}
	if code != http.StatusOK {
		return APIResult{}, fmt.Errorf("location endpoint returned status %d", code)
	}
	return *result, nil
}

func changed(prev, next APIResult) bool {
	return prev.Lat != next.Lat || prev.Lon != next.Lon || !prev.Time.Equal(next.Time)
}
