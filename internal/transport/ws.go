// Package transport maintains the websocket link to the session server. It
// redials with exponential backoff, keeps the connection alive with pings,
// and surfaces connects, disconnects and raw frames as one ordered event
// stream for the client loop.
package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var ErrNotConnected = errors.New("not_connected")

type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventFrame
)

type Event struct {
	Kind EventKind
	Data []byte
}

type Conn struct {
	url         string
	maxInterval time.Duration
	events      chan Event

	mu        sync.Mutex
	ws        *websocket.Conn
	connected bool
	gen       int

	// writeMu serializes frame and ping writes; gorilla permits only one
	// concurrent writer per connection.
	writeMu sync.Mutex
}

func New(url string, maxInterval time.Duration) *Conn {
	if maxInterval <= 0 {
		maxInterval = 30 * time.Second
	}
	return &Conn{
		url:         url,
		maxInterval: maxInterval,
		events:      make(chan Event, 64),
	}
}

// Events is the ordered stream consumed by the client loop. Connect and
// disconnect markers are interleaved with frames in arrival order.
func (c *Conn) Events() <-chan Event {
	return c.events
}

func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Send marshals v as JSON onto the current connection.
func (c *Conn) Send(v any) error {
	c.mu.Lock()
	ws := c.ws
	connected := c.connected
	c.mu.Unlock()
	if !connected || ws == nil {
		return ErrNotConnected
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteJSON(v)
}

// Rebuild tears down the current connection so the run loop dials a fresh
// one. Join uses this to guarantee the link carries current authentication.
func (c *Conn) Rebuild() {
	c.mu.Lock()
	c.gen++
	ws := c.ws
	c.ws = nil
	c.connected = false
	c.mu.Unlock()
	if ws != nil {
		_ = ws.Close()
	}
}

// Run dials and reads until ctx is done, redialing after every drop.
func (c *Conn) Run(ctx context.Context) {
	defer close(c.events)
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = c.maxInterval

	for {
		ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			wait := bo.NextBackOff()
			log.Warn().Err(err).Dur("retry_in", wait).Msg("session_dial_failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		bo.Reset()

		c.mu.Lock()
		c.ws = ws
		c.connected = true
		gen := c.gen
		c.mu.Unlock()
		c.events <- Event{Kind: EventConnected}
		log.Info().Str("url", c.url).Msg("session_connected")

		c.readUntilClosed(ctx, ws, gen)

		c.mu.Lock()
		if c.gen == gen {
			c.ws = nil
			c.connected = false
		}
		c.mu.Unlock()
		c.events <- Event{Kind: EventDisconnected}
		log.Info().Msg("session_disconnected")

		if ctx.Err() != nil {
			return
		}
	}
}

func (c *Conn) readUntilClosed(ctx context.Context, ws *websocket.Conn, gen int) {
	stopPing := make(chan struct{})
	defer close(stopPing)
	go c.pingLoop(ws, stopPing)

	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && ctx.Err() == nil {
				log.Warn().Err(err).Msg("session_read_error")
			}
			_ = ws.Close()
			return
		}
		select {
		case c.events <- Event{Kind: EventFrame, Data: data}:
		case <-ctx.Done():
			_ = ws.Close()
			return
		}
	}
}

func (c *Conn) pingLoop(ws *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			err := ws.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
