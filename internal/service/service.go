// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/vorlif/spreak"

	"github.com/wneessen/waybar-speed/internal/config"
	"github.com/wneessen/waybar-speed/internal/feed"
	"github.com/wneessen/waybar-speed/internal/fixbus"
	"github.com/wneessen/waybar-speed/internal/logger"
	"github.com/wneessen/waybar-speed/internal/mqttpub"
	"github.com/wneessen/waybar-speed/internal/presenter"
	"github.com/wneessen/waybar-speed/internal/reading"
	"github.com/wneessen/waybar-speed/internal/speed"
)

const (
	OutputClass = "waybar-speed"
	ClassStale  = "stale"
	ClassPaused = "paused"
	ClassNoFix  = "nofix"

	subscriberBuffer = 32

	// headingMinDistance is the distance in meters two fixes need to be apart before a heading is
	// derived from them. Below that, GPS jitter dominates the bearing.
	headingMinDistance = 1.0
)

var ErrNoLogger = errors.New("no logger provided")

type outputData struct {
	Text    string   `json:"text"`
	Tooltip string   `json:"tooltip"`
	Alt     string   `json:"alt"`
	Class   []string `json:"class"`
}

type Service struct {
	SignalSrc signalSource

	config    *config.Config
	fixbus    *fixbus.Bus
	feed      *feed.Feed
	logger    *logger.Logger
	mqtt      *mqttpub.Publisher
	presenter *presenter.Presenter
	scheduler gocron.Scheduler
	nowFn     func() time.Time

	// estimator is only touched by the goroutine that processes the fix subscription.
	estimator speed.Estimator

	runLock   sync.Mutex
	running   atomic.Bool
	suspended atomic.Bool
	cancelSub context.CancelFunc
	unsub     func()
	done      chan struct{}

	stateLock      sync.RWMutex
	latest         reading.Reading
	haveReading    bool
	displayAltText bool

	outputLock sync.Mutex
	output     io.Writer
}

// New returns a Service that renders the speed derived from the fixes of all configured location
// providers. The optional MQTT and feed sinks are created when enabled.
func New(conf *config.Config, log *logger.Logger, t *spreak.Localizer) (*Service, error) {
	if log == nil {
		return nil, ErrNoLogger
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	bus, err := fixbus.New(log, fixbus.Options{
		MinInterval: conf.Updates.MinInterval,
		MinDistance: conf.Updates.MinDistance,
		SourceTTL:   conf.Updates.SourceTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create fixbus: %w", err)
	}

	pres, err := presenter.New(conf, t)
	if err != nil {
		return nil, fmt.Errorf("failed to create presenter: %w", err)
	}

	service := &Service{
		SignalSrc: stdLibSignalSource{},
		config:    conf,
		fixbus:    bus,
		logger:    log,
		presenter: pres,
		scheduler: scheduler,
		nowFn:     time.Now,
		output:    os.Stdout,
	}

	if conf.MQTT.Enable {
		service.mqtt = mqttpub.New(log, conf)
	}
	if conf.Feed.Enable {
		service.feed = feed.New(log, conf.Feed.Listen)
	}

	return service, nil
}

// Run starts tracking the location providers and prints the speed to stdout until the context
// is canceled.
func (s *Service) Run(ctx context.Context) error {
	providers, err := s.selectProviders()
	if err != nil {
		return fmt.Errorf("failed to create fixbus orchestrator: %w", err)
	}
	orchestrator := s.fixbus.NewOrchestrator(providers)

	if s.mqtt != nil {
		if err = s.mqtt.Connect(); err != nil {
			return err
		}
		defer s.mqtt.Close()
		go s.mqtt.Run(ctx)
	}

	if err = s.createScheduledJob(ctx, s.config.Intervals.Output, s.printOutput, "output_job"); err != nil {
		return err
	}
	s.scheduler.Start()

	if s.feed != nil {
		go func() {
			if err := s.feed.Start(ctx); err != nil {
				s.logger.Error("reading feed stopped", logger.Err(err))
			}
		}()
	}

	s.Start(ctx)
	s.printOutput(ctx)
	go orchestrator.Track(ctx)

	if !s.config.DisableSleepMonitor {
		go s.monitorSleepResume(ctx)
	}

	sigChan := make(chan os.Signal, 1)
	s.SignalSrc.Notify(sigChan, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		defer s.SignalSrc.Stop(sigChan)
		s.HandleSignals(ctx, sigChan)
	}()

	<-ctx.Done()
	s.Stop()
	return s.scheduler.Shutdown()
}

// Start subscribes to the fixbus and starts processing fixes. The estimator starts over, so the
// first fix after a start reports a speed of 0. Calling Start on a running service does nothing.
func (s *Service) Start(ctx context.Context) {
	s.runLock.Lock()
	defer s.runLock.Unlock()
	if s.running.Load() {
		return
	}

	// The previous processing goroutine must be gone before the estimator is reset.
	if s.done != nil {
		<-s.done
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub, unsub := s.fixbus.Subscribe(subscriberBuffer)
	done := make(chan struct{})
	s.cancelSub, s.unsub, s.done = cancel, unsub, done
	s.running.Store(true)

	go func() {
		defer close(done)
		s.estimator.Reset()
		s.processFixes(subCtx, sub)
	}()
}

// Stop unsubscribes from the fixbus. No further fixes are processed until Start is called again.
// Calling Stop on a stopped service does nothing.
func (s *Service) Stop() {
	s.runLock.Lock()
	defer s.runLock.Unlock()
	if !s.running.Load() {
		return
	}
	s.cancelSub()
	s.unsub()
	s.running.Store(false)
}

// Running reports whether the service is subscribed to location updates.
func (s *Service) Running() bool {
	return s.running.Load()
}

// Paused reports whether location updates are stopped.
func (s *Service) Paused() bool {
	return !s.running.Load()
}

// Latest returns the most recent reading and whether one exists.
func (s *Service) Latest() (reading.Reading, bool) {
	s.stateLock.RLock()
	defer s.stateLock.RUnlock()
	return s.latest, s.haveReading
}

func (s *Service) createScheduledJob(ctx context.Context, interval time.Duration, task func(context.Context),
	jobName string,
) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", jobName, err)
	}
	return nil
}

// processFixes consumes the fixbus subscription until it is closed or the context is canceled.
func (s *Service) processFixes(ctx context.Context, sub <-chan fixbus.Fix) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-sub:
			if !ok {
				return
			}
			s.logger.Debug("received location fix", slog.Float64("lat", f.Lat), slog.Float64("lon", f.Lon),
				slog.String("source", f.Source))
			s.processFix(ctx, f)
		}
	}
}

// processFix derives the speed for a fix, stores the resulting reading and hands it to the
// output and the sinks.
func (s *Service) processFix(ctx context.Context, f fixbus.Fix) {
	current := f.SpeedFix()
	prev, hadPrev := s.estimator.Previous()
	mps := s.estimator.Update(current)

	estimated := true
	if s.config.Speed.PreferReported && f.ReportedSpeed.IsSet() {
		mps = f.ReportedSpeed.Value()
		estimated = false
	}

	r := reading.New(f, mps, estimated, s.nowFn())
	switch {
	case f.Course.IsSet():
		r.SetHeading(f.Course.Value())
	case hadPrev && speed.Distance(prev, current) >= headingMinDistance:
		r.SetHeading(speed.Bearing(prev, current))
	}

	s.stateLock.Lock()
	s.latest = r
	s.haveReading = true
	s.stateLock.Unlock()

	s.printOutput(ctx)
	s.publish(r)
}

// publish forwards the reading to the enabled sinks without blocking fix processing.
func (s *Service) publish(r reading.Reading) {
	if s.mqtt != nil {
		s.mqtt.Enqueue(r)
	}
	if s.feed != nil {
		s.feed.Update(r)
	}
}

// printOutput writes the current state as waybar JSON line to the output.
func (s *Service) printOutput(context.Context) {
	s.stateLock.RLock()
	latest, haveReading, alt := s.latest, s.haveReading, s.displayAltText
	s.stateLock.RUnlock()
	paused := s.Paused()

	output := outputData{Class: []string{OutputClass}}
	if !haveReading {
		output.Text = s.presenter.Waiting()
		output.Alt = ClassNoFix
		output.Class = append(output.Class, ClassNoFix)
		if paused {
			output.Text = s.presenter.PausedText()
			output.Class = append(output.Class, ClassPaused)
		}
		output.Tooltip = output.Text
		s.write(output)
		return
	}

	stale := s.config.Intervals.StaleAfter > 0 && latest.Age(s.nowFn()) > s.config.Intervals.StaleAfter
	tplCtx := s.presenter.BuildContext(latest, paused, stale)
	rendered, err := s.presenter.Render(tplCtx)
	if err != nil {
		s.logger.Error("failed to render output", logger.Err(err))
		return
	}

	output.Text, output.Tooltip = rendered["text"], rendered["tooltip"]
	if alt {
		output.Text, output.Tooltip = rendered["alt_text"], rendered["alt_tooltip"]
	}
	output.Alt = tplCtx.Class
	output.Class = append(output.Class, tplCtx.Class)
	if stale {
		output.Class = append(output.Class, ClassStale)
	}
	if paused {
		output.Class = append(output.Class, ClassPaused)
	}
	s.write(output)
}

func (s *Service) write(output outputData) {
	s.outputLock.Lock()
	defer s.outputLock.Unlock()
	if err := json.NewEncoder(s.output).Encode(output); err != nil {
		s.logger.Error("failed to encode output data", logger.Err(err))
	}
}
