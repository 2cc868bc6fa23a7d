package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gridwise/layout-backend/internal/config"
	"github.com/gridwise/layout-backend/internal/domain"
	"github.com/gridwise/layout-backend/internal/service/collab"
)

// collabService defines the collaboration operations driven over the channel.
type collabService interface {
	Join(ctx context.Context, layoutID, regionID uuid.UUID) error
	Leave(ctx context.Context, layoutID, regionID uuid.UUID) error
	Heartbeat(ctx context.Context) error
	UpdatePresence(ctx context.Context, layoutID, regionID uuid.UUID, isEditing bool) error
	AcquireLock(ctx context.Context, layoutID, regionID uuid.UUID) (domain.LockResult, error)
	ReleaseLock(ctx context.Context, layoutID, regionID uuid.UUID) error
	SubmitRegionWrite(ctx context.Context, layoutID uuid.UUID, input collab.WriteInput) (*domain.Region, error)
	ResolveConflict(ctx context.Context, layoutID uuid.UUID, input collab.ResolveInput) (*domain.Region, error)
	DisconnectSession(sessionID uuid.UUID)
}

// Client is one websocket connection bound to a session editing one layout.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	collab collabService
	cfg    config.ChannelConfig
	log    *slog.Logger

	layoutID  uuid.UUID
	sessionID uuid.UUID

	// ctx carries the session identity for every command on this connection.
	ctx  context.Context
	send chan []byte
}

// trySend queues a frame without blocking and reports whether it was
// enqueued. Dropping beats stalling the whole room behind one slow consumer.
func (c *Client) trySend(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		c.log.Warn("send buffer full, dropping frame",
			slog.String("session_id", c.sessionID.String()),
		)
		return false
	}
}

// readPump reads commands until the connection dies. Runs on the handler
// goroutine; its return triggers teardown.
func (c *Client) readPump() {
	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("websocket closed unexpectedly", slog.Any("error", err))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			c.sendError(env.Ref, "bad_envelope", "malformed message")
			continue
		}
		c.dispatch(env)
	}
}

// writePump owns all writes to the connection: queued frames plus pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) dispatch(env Envelope) {
	switch env.Type {
	case CmdJoin:
		var p regionRef
		c.run(env, &p, func() (any, error) {
			return nil, c.collab.Join(c.ctx, c.layoutID, p.RegionID)
		})
	case CmdLeave:
		var p regionRef
		c.run(env, &p, func() (any, error) {
			return nil, c.collab.Leave(c.ctx, c.layoutID, p.RegionID)
		})
	case CmdHeartbeat:
		c.run(env, nil, func() (any, error) {
			return nil, c.collab.Heartbeat(c.ctx)
		})
	case CmdUpdatePresence:
		var p updatePresencePayload
		c.run(env, &p, func() (any, error) {
			return nil, c.collab.UpdatePresence(c.ctx, c.layoutID, p.RegionID, p.IsEditing)
		})
	case CmdAcquireLock:
		var p regionRef
		c.run(env, &p, func() (any, error) {
			return c.collab.AcquireLock(c.ctx, c.layoutID, p.RegionID)
		})
	case CmdReleaseLock:
		var p regionRef
		c.run(env, &p, func() (any, error) {
			return nil, c.collab.ReleaseLock(c.ctx, c.layoutID, p.RegionID)
		})
	case CmdSubmitWrite:
		var p submitWritePayload
		c.run(env, &p, func() (any, error) {
			return c.collab.SubmitRegionWrite(c.ctx, c.layoutID, collab.WriteInput{
				RegionID:     p.RegionID,
				BaseRevision: p.BaseRevision,
				Changes:      p.Changes,
			})
		})
	case CmdResolveConflict:
		var p resolveConflictPayload
		c.run(env, &p, func() (any, error) {
			return c.collab.ResolveConflict(c.ctx, c.layoutID, collab.ResolveInput{
				RegionID: p.RegionID,
				Strategy: p.Strategy,
			})
		})
	default:
		c.sendError(env.Ref, "unknown_command", "unknown command type: "+env.Type)
	}
}

// run unmarshals the payload into dst (when non-nil), executes the command,
// and replies with an ack carrying the result or an error carrying the code.
func (c *Client) run(env Envelope, dst any, fn func() (any, error)) {
	if dst != nil {
		if err := json.Unmarshal(env.Payload, dst); err != nil {
			c.sendError(env.Ref, "bad_payload", "malformed payload for "+env.Type)
			return
		}
	}

	result, err := fn()
	if err != nil {
		code, msg := errorCode(err)
		c.sendError(env.Ref, code, msg)
		return
	}

	frame, err := json.Marshal(Event{Type: EvtAck, Ref: env.Ref, Payload: result})
	if err != nil {
		c.log.Error("marshal ack", slog.Any("error", err))
		return
	}
	if !c.trySend(frame) {
		// The command executed but its ack was lost; the client is expected
		// to fall back to polling over REST.
		c.log.Warn("ack undeliverable",
			slog.String("session_id", c.sessionID.String()),
			slog.String("ref", env.Ref),
			slog.Any("error", domain.ErrChannelUnavailable),
		)
	}
}

func (c *Client) sendError(ref, code, message string) {
	frame, err := json.Marshal(Event{
		Type:    EvtError,
		Ref:     ref,
		Payload: errorPayload{Code: code, Message: message},
	})
	if err != nil {
		return
	}
	c.trySend(frame)
}

// errorCode maps domain errors to stable wire codes. The message is safe to
// show to the client; internals are never leaked.
func errorCode(err error) (string, string) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		return "validation", vErr.Error()
	case errors.Is(err, domain.ErrNotFound):
		return "not_found", "not found"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized", "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden", "forbidden"
	case errors.Is(err, domain.ErrLockDenied):
		return "lock_denied", "region is locked by another session"
	case errors.Is(err, domain.ErrLockNotHeld):
		return "lock_not_held", "session does not hold the region lock"
	case errors.Is(err, domain.ErrConflict):
		return "conflict", "write conflicts with a newer revision"
	case errors.Is(err, domain.ErrRetryExhausted):
		return "retry_exhausted", "conflict resolution retries exhausted"
	case errors.Is(err, domain.ErrMalformedSnapshot):
		return "malformed_snapshot", "snapshot failed validation"
	case errors.Is(err, domain.ErrChannelUnavailable):
		return "channel_unavailable", "real-time channel unavailable, use the REST fallback"
	default:
		return "internal", "internal error"
	}
}
