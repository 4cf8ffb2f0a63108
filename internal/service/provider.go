// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"errors"
	"fmt"

	"github.com/wneessen/waybar-speed/internal/fixbus"
	"github.com/wneessen/waybar-speed/internal/fixbus/provider/gpsd"
	"github.com/wneessen/waybar-speed/internal/fixbus/provider/httpfix"
	"github.com/wneessen/waybar-speed/internal/fixbus/provider/nmea"
	"github.com/wneessen/waybar-speed/internal/http"
)

var ErrNoProviders = errors.New("no location providers enabled")

// selectProviders returns all location providers that are enabled in the config.
func (s *Service) selectProviders() ([]fixbus.Provider, error) {
	var provider []fixbus.Provider
	src := s.config.Source

	if !src.GPSD.Disable {
		provider = append(provider, gpsd.NewGPSDProvider(s.logger, src.GPSD.Host, src.GPSD.Port,
			src.GPSD.Mode, src.GPSD.Period))
	}

	if src.Serial.Enable {
		provider = append(provider, nmea.NewSerialProvider(s.logger, src.Serial.Port, src.Serial.Baud))
	}

	if src.NMEAFile.Path != "" {
		provider = append(provider, nmea.NewFileProvider(s.logger, src.NMEAFile.Path, src.NMEAFile.FromStart))
	}

	if src.HTTP.URL != "" {
		hfp, err := httpfix.NewHTTPFixProvider(s.logger, http.New(s.logger), src.HTTP.URL, src.HTTP.Interval)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP location provider: %w", err)
		}
		provider = append(provider, hfp)
	}

	if len(provider) == 0 {
		return nil, ErrNoProviders
	}

	return provider, nil
}
