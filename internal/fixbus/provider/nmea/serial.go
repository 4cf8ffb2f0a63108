// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package nmea

import (
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/jacobsa/go-serial/serial"

	"github.com/wneessen/waybar-speed/internal/fixbus"
	"github.com/wneessen/waybar-speed/internal/logger"
)

const serialName = "nmea_serial"

// SerialProvider reads NMEA sentences from a serial GPS receiver.
type SerialProvider struct {
	name   string
	port   string
	baud   uint
	logger *logger.Logger
	openFn func() (io.ReadCloser, error)
}

// NewSerialProvider returns a provider for the receiver at port (e.g. /dev/ttyACM0) using 8N1
// framing at the given baud rate.
func NewSerialProvider(log *logger.Logger, port string, baud uint) *SerialProvider {
	provider := &SerialProvider{
		name:   serialName,
		port:   port,
		baud:   baud,
		logger: log,
	}
	provider.openFn = provider.openPort
	return provider
}

func (p *SerialProvider) Name() string {
	return p.name
}

// LookupStream opens the serial port and streams fixes until the port fails or the context is
// canceled. The orchestrator restarts the stream after a failure.
func (p *SerialProvider) LookupStream(ctx context.Context) <-chan fixbus.Fix {
	port, err := p.openFn()
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			p.logger.Error("location permission denied, check access to the serial device",
				slog.String("port", p.port), logger.Err(err))
		} else {
			p.logger.Error("failed to open serial port", slog.String("port", p.port), logger.Err(err))
		}
		return nil
	}

	out := make(chan fixbus.Fix)
	var closeOnce sync.Once
	closePort := func() {
		closeOnce.Do(func() {
			if err := port.Close(); err != nil {
				p.logger.Debug("failed to close serial port", slog.String("port", p.port), logger.Err(err))
			}
		})
	}

	// Closing the port on cancel unblocks a pending read.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			closePort()
		case <-done:
		}
	}()
	go func() {
		defer close(out)
		defer closePort()
		defer close(done)
		streamLines(ctx, bufio.NewScanner(port), NewParser(p.name), out, p.logger)
	}()

	return out
}

func (p *SerialProvider) openPort() (io.ReadCloser, error) {
	return serial.Open(serial.OpenOptions{
		PortName:        p.port,
		BaudRate:        p.baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
}

// streamLines parses every scanned line and sends completed fixes to out.
func streamLines(ctx context.Context, scanner *bufio.Scanner, parser *Parser, out chan<- fixbus.Fix,
	log *logger.Logger,
) {
	for scanner.Scan() {
		fix, ok, err := parser.Parse(scanner.Text())
		if err != nil {
			log.Debug("skipping NMEA line", logger.Err(err))
			continue
		}
		if !ok {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case out <- fix:
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		log.Error("failed to read NMEA stream", logger.Err(err))
	}
}
