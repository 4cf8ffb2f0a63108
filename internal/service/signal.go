// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

type signalSource interface {
	Notify(c chan<- os.Signal, sig ...os.Signal)
	Stop(c chan<- os.Signal)
}

// stdLibSignalSource is the production implementation.
type stdLibSignalSource struct{}

func (stdLibSignalSource) Notify(c chan<- os.Signal, sig ...os.Signal) {
	signal.Notify(c, sig...)
}

func (stdLibSignalSource) Stop(c chan<- os.Signal) {
	signal.Stop(c)
}

// HandleSignals toggles the alternative text on SIGUSR1 and pauses or resumes location updates
// on SIGUSR2.
func (s *Service) HandleSignals(ctx context.Context, sigChan chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGUSR1:
				s.stateLock.Lock()
				s.displayAltText = !s.displayAltText
				s.stateLock.Unlock()
			case syscall.SIGUSR2:
				if s.Paused() {
					s.logger.Info("resuming location updates")
					s.Start(ctx)
				} else {
					s.logger.Info("pausing location updates")
					s.Stop()
				}
			default:
				s.logger.Debug("ignoring unexpected signal", slog.String("signal", sig.String()))
				continue
			}
			s.printOutput(ctx)
		}
	}
}
