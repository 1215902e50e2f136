// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package web

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/personachat/internal/driver"
	"github.com/jeranaias/personachat/internal/session"
	"github.com/jeranaias/personachat/internal/ui/view"
)

// Frame types.
const (
	frameState   = "state"
	frameError   = "error"
	frameSubmit  = "submit"
	framePersona = "persona"
	frameRetry   = "retry"
	frameInput   = "input"
)

const (
	maxFrameSize = 64 << 10
	writeWait    = 10 * time.Second
)

// inFrame is a message from the browser.
type inFrame struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Persona string `json:"persona,omitempty"`
}

// outFrame is a message to the browser.
type outFrame struct {
	Type  string     `json:"type"`
	View  *view.View `json:"view,omitempty"`
	Error string     `json:"error,omitempty"`
}

// client binds one websocket to one session.
type client struct {
	conn     *websocket.Conn
	store    *session.Store
	d        *driver.Driver
	personas []string
	logger   zerolog.Logger

	writeMu sync.Mutex
	ops     sync.WaitGroup
}

func newClient(conn *websocket.Conn, store *session.Store, d *driver.Driver, personas []string) *client {
	return &client{
		conn:     conn,
		store:    store,
		d:        d,
		personas: personas,
		logger:   log.With().Str("session", store.SessionID()).Str("remote", conn.RemoteAddr().String()).Logger(),
	}
}

// serve pushes views and dispatches frames until the socket closes.
func (c *client) serve(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	watching := c.store.Watch(ctx, func(snap session.Snapshot) {
		v := view.Render(snap, c.personas)
		c.write(outFrame{Type: frameState, View: &v})
	})
	defer func() {
		cancel()
		c.ops.Wait()
		<-watching
		_ = c.conn.Close()
		c.logger.Info().Msg("websocket closed")
	}()
	c.logger.Info().Msg("websocket connected")

	c.run(ctx, c.d.Initialize)

	c.conn.SetReadLimit(maxFrameSize)
	for {
		var f inFrame
		if err := c.conn.ReadJSON(&f); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug().Err(err).Msg("read frame")
			}
			return
		}
		c.dispatch(ctx, f)
	}
}

func (c *client) dispatch(ctx context.Context, f inFrame) {
	switch f.Type {
	case frameSubmit:
		text := f.Text
		c.run(ctx, func(ctx context.Context) error { return c.d.Submit(ctx, text) })
	case framePersona:
		name := f.Persona
		c.run(ctx, func(ctx context.Context) error { return c.d.SelectPersona(ctx, name) })
	case frameRetry:
		c.run(ctx, c.d.Retry)
	case frameInput:
		c.d.SetInput(f.Text)
	default:
		c.write(outFrame{Type: frameError, Error: "unknown frame type " + f.Type})
	}
}

// run starts a driver operation on its own goroutine. Failures that the
// session records are shown by the next state frame; other errors are sent
// as error frames.
func (c *client) run(ctx context.Context, op func(context.Context) error) {
	c.ops.Add(1)
	go func() {
		defer c.ops.Done()
		err := op(ctx)
		if err == nil || driver.IsNoop(err) {
			return
		}
		if snap := c.store.Snapshot(); snap.Failed() && errors.Is(snap.Err, err) {
			return
		}
		c.write(outFrame{Type: frameError, Error: err.Error()})
	}()
}

func (c *client) write(f outFrame) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(f); err != nil {
		c.logger.Debug().Err(err).Str("type", f.Type).Msg("write frame")
	}
}
