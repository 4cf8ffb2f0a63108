// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package feed serves the latest speed reading over HTTP and streams updates to WebSocket clients.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/wneessen/waybar-speed/internal/logger"
	"github.com/wneessen/waybar-speed/internal/reading"
)

const (
	clientBufferSize  = 4
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

var (
	pingInterval = 30 * time.Second
	pingTimeout  = 5 * time.Second
	writeTimeout = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// Feed keeps the most recent reading and fans out updates to connected WebSocket clients.
type Feed struct {
	listen string
	logger *logger.Logger
	router *gin.Engine

	mu         sync.RWMutex
	latest     reading.Reading
	haveLatest bool
	clients    map[chan reading.Reading]struct{}
}

// New returns a Feed that listens on the given address once started.
func New(log *logger.Logger, listen string) *Feed {
	gin.SetMode(gin.ReleaseMode)
	feed := &Feed{
		listen:  listen,
		logger:  log,
		clients: make(map[chan reading.Reading]struct{}),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/api/reading", feed.onReading)
	router.GET("/ws", feed.onWebSocket)
	feed.router = router

	return feed
}

// Handler returns the HTTP handler of the feed.
func (f *Feed) Handler() http.Handler {
	return f.router
}

// Start serves the feed until the context is canceled.
func (f *Feed) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              f.listen,
		Handler:           f.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	f.logger.Info("reading feed listening", slog.String("address", f.listen))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve reading feed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down reading feed: %w", err)
		}
		return nil
	}
}

// Update stores the reading and hands it to all connected clients. Clients that are too slow
// to keep up miss the update.
func (f *Feed) Update(r reading.Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest = r
	f.haveLatest = true
	for ch := range f.clients {
		select {
		case ch <- r:
		default:
			f.logger.Debug("websocket client too slow, dropping reading")
		}
	}
}

func (f *Feed) onReading(c *gin.Context) {
	f.mu.RLock()
	latest, ok := f.latest, f.haveLatest
	f.mu.RUnlock()

	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no reading available yet"})
		return
	}
	c.JSON(http.StatusOK, latest)
}

func (f *Feed) onWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		f.logger.Error("failed to upgrade websocket connection", logger.Err(err))
		return
	}
	defer func() {
		if err = conn.Close(); err != nil {
			f.logger.Debug("failed to close websocket connection", logger.Err(err))
		}
	}()

	updates, latest, haveLatest := f.subscribe()
	defer f.unsubscribe(updates)

	// The reader only exists to process pongs and to notice when the client goes away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		_ = conn.SetReadDeadline(time.Now().Add(pingInterval + pingTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pingInterval + pingTimeout))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if haveLatest {
		if err = writeReading(conn, latest); err != nil {
			return
		}
	}

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-closed:
			return
		case r := <-updates:
			if err = writeReading(conn, r); err != nil {
				f.logger.Debug("failed to write reading to websocket client", logger.Err(err))
				return
			}
		case <-pingTicker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err = conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// subscribe registers a client channel and returns it together with the current reading.
func (f *Feed) subscribe() (chan reading.Reading, reading.Reading, bool) {
	ch := make(chan reading.Reading, clientBufferSize)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients[ch] = struct{}{}
	return ch, f.latest, f.haveLatest
}

func (f *Feed) unsubscribe(ch chan reading.Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.clients, ch)
}

func writeReading(conn *websocket.Conn, r reading.Reading) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(r)
}
