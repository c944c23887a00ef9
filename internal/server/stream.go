package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ctchen222/Finger-Auth/internal/api/middleware"
	"ctchen222/Finger-Auth/internal/landmark"
	"ctchen222/Finger-Auth/internal/validator"
	"ctchen222/Finger-Auth/pkg/proto"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const writeWait = 10 * time.Second

// handleStream upgrades the request and evaluates frames as they arrive
// until one matches the target, the client leaves, or the stream idles out.
func (s *Server) handleStream(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "server.handleStream", trace.WithAttributes(
		attribute.String("http.url", c.Request.URL.String()),
	))
	defer span.End()

	// The session middleware may have issued a cookie; carry it on the
	// handshake response.
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, c.Writer.Header())
	if err != nil {
		slog.WarnContext(ctx, "Failed to upgrade connection", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(2 * landmark.MaxImageBytes)
	sid := middleware.SessionID(c)

	frames := 0
	for {
		if err := conn.SetReadDeadline(time.Now().Add(s.idleTimeout)); err != nil {
			return
		}
		var msg proto.ClientToServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.DebugContext(ctx, "Frame stream ended", "error", err)
			}
			span.SetAttributes(attribute.Int("stream.frames", frames))
			return
		}

		if err := validator.GetValidator().Struct(msg); err != nil {
			if !s.send(conn, proto.ServerToClientMessage{Type: proto.TypeError, Reason: "invalid message"}) {
				return
			}
			continue
		}

		done, err := s.dispatch(ctx, conn, sid, msg)
		if msg.Type == proto.TypeFrame {
			frames++
		}
		if errors.Is(err, errClientGone) {
			return
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Stream request failed")
			slog.ErrorContext(ctx, "Frame stream request failed", "error", err)
			s.send(conn, proto.ServerToClientMessage{Type: proto.TypeError, Reason: "internal error"})
			return
		}
		if done {
			span.SetAttributes(attribute.Int("stream.frames", frames))
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "challenge passed"),
				time.Now().Add(writeWait))
			return
		}
	}
}

// dispatch handles one client message. done is true once a frame matched.
func (s *Server) dispatch(ctx context.Context, conn *websocket.Conn, sid string, msg proto.ClientToServerMessage) (done bool, err error) {
	switch msg.Type {
	case proto.TypeGenerate:
		st, err := s.challenges.Generate(ctx, sid)
		if err != nil {
			return false, err
		}
		if !s.send(conn, proto.ServerToClientMessage{Type: proto.TypeChallenge, TargetNumber: st.Target}) {
			return false, errClientGone
		}
		return false, nil

	case proto.TypeFrame:
		res, err := s.challenges.Evaluate(ctx, sid, msg.Image)
		if err != nil {
			return false, err
		}
		out := proto.ServerToClientMessage{
			Type:            proto.TypeResult,
			Success:         res.Success,
			TargetNumber:    res.TargetNumber,
			DetectedFingers: res.DetectedFingers,
			Message:         res.Message,
		}
		if !s.send(conn, out) {
			return false, errClientGone
		}
		return res.Success, nil
	}
	return false, nil
}

var errClientGone = errors.New("stream client went away")

func (s *Server) send(conn *websocket.Conn, msg proto.ServerToClientMessage) bool {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return false
	}
	return conn.WriteJSON(msg) == nil
}
