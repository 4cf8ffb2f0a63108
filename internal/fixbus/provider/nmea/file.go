// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package nmea

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/wneessen/waybar-speed/internal/fixbus"
	"github.com/wneessen/waybar-speed/internal/logger"
)

const fileName = "nmea_file"

// FileProvider follows an NMEA log file, e.g. one written by a phone tethering app or by
// gpspipe -r, and emits a fix for every valid RMC sentence appended to it.
type FileProvider struct {
	name      string
	path      string
	fromStart bool
	logger    *logger.Logger
}

// NewFileProvider returns a provider for the log file at path. If fromStart is set, sentences
// that are already in the file are replayed before following new ones.
func NewFileProvider(log *logger.Logger, path string, fromStart bool) *FileProvider {
	return &FileProvider{
		name:      fileName,
		path:      path,
		fromStart: fromStart,
		logger:    log,
	}
}

func (p *FileProvider) Name() string {
	return p.name
}

// LookupStream follows the file until it is removed or renamed, or the context is canceled.
func (p *FileProvider) LookupStream(ctx context.Context) <-chan fixbus.Fix {
	file, watcher, err := p.open()
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			p.logger.Error("location permission denied, check access to the NMEA file",
				slog.String("path", p.path), logger.Err(err))
		} else {
			p.logger.Error("failed to follow NMEA file", slog.String("path", p.path), logger.Err(err))
		}
		return nil
	}

	out := make(chan fixbus.Fix)
	go func() {
		defer close(out)
		defer func() {
			if err := watcher.Close(); err != nil {
				p.logger.Debug("failed to close file watcher", logger.Err(err))
			}
			if err := file.Close(); err != nil {
				p.logger.Debug("failed to close NMEA file", logger.Err(err))
			}
		}()

		f := &follower{
			reader: bufio.NewReader(file),
			parser: NewParser(p.name),
			out:    out,
			logger: p.logger,
		}
		if !f.drain(ctx) {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					p.logger.Debug("NMEA file went away", slog.String("path", p.path))
					return
				}
				if event.Has(fsnotify.Write) && !f.drain(ctx) {
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				p.logger.Error("file watcher failed", slog.String("path", p.path), logger.Err(err))
				return
			}
		}
	}()

	return out
}

func (p *FileProvider) open() (*os.File, *fsnotify.Watcher, error) {
	file, err := os.Open(p.path)
	if err != nil {
		return nil, nil, err
	}
	if !p.fromStart {
		if _, err = file.Seek(0, io.SeekEnd); err != nil {
			_ = file.Close()
			return nil, nil, fmt.Errorf("failed to seek to end of file: %w", err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err = watcher.Add(p.path); err != nil {
		_ = watcher.Close()
		_ = file.Close()
		return nil, nil, fmt.Errorf("failed to watch file: %w", err)
	}
	return file, watcher, nil
}

// follower reads complete lines from a growing file. A trailing line without newline is kept
// until the writer finishes it.
type follower struct {
	reader  *bufio.Reader
	pending string
	parser  *Parser
	out     chan<- fixbus.Fix
	logger  *logger.Logger
}

// drain consumes all complete lines currently in the file. It returns false if the context was
// canceled or reading failed.
func (f *follower) drain(ctx context.Context) bool {
	for {
		chunk, err := f.reader.ReadString('\n')
		f.pending += chunk
		if errors.Is(err, io.EOF) {
			return true
		}
		if err != nil {
			f.logger.Error("failed to read NMEA file", logger.Err(err))
			return false
		}

		line := f.pending
		f.pending = ""
		fix, ok, perr := f.parser.Parse(line)
		if perr != nil {
			f.logger.Debug("skipping NMEA line", logger.Err(perr))
			continue
		}
		if !ok {
			continue
		}
		select {
		case <-ctx.Done():
			return false
		case f.out <- fix:
		}
	}
}
