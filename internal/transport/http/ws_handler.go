package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pawsit-server/internal/config"
	"github.com/vovakirdan/pawsit-server/internal/core"
	"github.com/vovakirdan/pawsit-server/internal/proto"
	"github.com/vovakirdan/pawsit-server/internal/utils"
)

const flushTimeout = time.Second

// WSHandler upgrades HTTP connections and bridges them to the core router.
type WSHandler struct {
	router         *core.Router
	log            *zerolog.Logger
	maxMessageSize int64
	rateLimit      int
	origins        []string
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(router *core.Router, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		router:         router,
		log:            logger,
		maxMessageSize: cfg.MaxMessageBytes,
		rateLimit:      cfg.RateLimitPerMinute,
		origins:        cfg.AllowedOrigins,
	}
}

// handshakeFromRequest reads socket credentials from the query string, falling
// back to headers.
func handshakeFromRequest(r *stdhttp.Request) core.Handshake {
	q := r.URL.Query()
	hs := core.Handshake{
		AccessToken:  q.Get("accessToken"),
		RefreshToken: q.Get("refreshToken"),
	}
	if hs.AccessToken == "" {
		if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
			hs.AccessToken = token
		}
	}
	if hs.RefreshToken == "" {
		hs.RefreshToken = r.Header.Get("X-Refresh-Token")
	}
	return hs
}

func (h *WSHandler) acceptOptions() *websocket.AcceptOptions {
	if len(h.origins) == 0 {
		return &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	return &websocket.AcceptOptions{OriginPatterns: h.origins}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	hs := handshakeFromRequest(r)

	conn, err := websocket.Accept(w, r, h.acceptOptions())
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.maxMessageSize > 0 {
		conn.SetReadLimit(h.maxMessageSize)
	}

	client := core.NewConn(utils.NewID())
	h.router.Attach(client)
	defer h.router.Disconnect(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := h.router.Authenticate(ctx, client, hs); err != nil {
		h.log.Debug().Err(err).Str("conn_id", client.ID).Msg("ws handshake refused")
		h.flush(ctx, conn, client)
		reason := "authentication failed"
		var rejectErr *core.RejectError
		if errors.As(err, &rejectErr) {
			reason = rejectErr.Kind.String()
		}
		conn.Close(websocket.StatusPolicyViolation, reason)
		return
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// flush writes whatever is queued on a connection that is about to be closed.
func (h *WSHandler) flush(ctx context.Context, conn *websocket.Conn, client *core.Conn) {
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	for {
		select {
		case event := <-client.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Debug().Err(err).Str("conn_id", client.ID).Msg("flush ws event")
				return
			}
		default:
			return
		}
	}
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Conn) error {
	limiter := newRateLimiter(h.rateLimit)

	for {
		var inbound proto.Envelope
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Str("conn_id", client.ID).Msg("read ws inbound")
			return err
		}

		if !limiter.allow() {
			h.log.Warn().Str("conn_id", client.ID).Str("event", inbound.Event).Msg("rate limit exceeded")
			if err := writeNotice(ctx, conn, "rate limit exceeded"); err != nil {
				return err
			}
			continue
		}

		cmd, reason := inboundToCommand(inbound)
		if reason != "" {
			h.log.Debug().Str("conn_id", client.ID).Str("event", inbound.Event).Str("reason", reason).Msg("rejected inbound")
			if err := writeNotice(ctx, conn, reason); err != nil {
				return err
			}
			continue
		}

		if err := h.router.Dispatch(ctx, client, cmd); err != nil {
			h.log.Warn().Err(err).Str("conn_id", client.ID).Str("event", inbound.Event).Msg("dispatch failed")
			if err := writeNotice(ctx, conn, err.Error()); err != nil {
				return err
			}
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Conn) error {
	for {
		select {
		case event := <-client.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func writeNotice(ctx context.Context, conn *websocket.Conn, msg string) error {
	return wsjson.Write(ctx, conn, proto.Outbound{
		Event: proto.EventError,
		Data:  msg,
	})
}
