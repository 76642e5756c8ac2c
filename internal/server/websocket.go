package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hyperjump/hanashi/internal/models"
	"github.com/hyperjump/hanashi/internal/stream"
)

const (
	wsReadLimit    = 64 << 10
	wsWriteTimeout = 10 * time.Second
)

// Frame types sent over /ws/generate.
const (
	FrameChunk = "chunk"
	FrameDone  = "done"
	FrameError = "error"
)

// Frame is one server message on the websocket.
type Frame struct {
	Type      string `json:"type"`
	Data      string `json:"data,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin applies the CORS origin list to websocket handshakes.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.cfg.Server.CORSOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// handleWebsocket answers one query per incoming frame. A frame is either
// plain text or {"query": ..., "session_id": ...}; the session_id query
// parameter is the default for plain text frames.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	ctx := r.Context()
	session := r.URL.Query().Get("session_id")

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read failed", zap.Error(err))
			} else {
				s.logger.Debug("client disconnected")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if !s.limiter.allowRequest(r) {
			if err := writeFrame(conn, Frame{Type: FrameError, Error: "rate limit exceeded"}); err != nil {
				s.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
			continue
		}
		req := parseFrame(data, session)
		if err := s.answerFrame(ctx, conn, req); err != nil {
			s.logger.Debug("websocket write failed", zap.Error(err))
			return
		}
	}
}

func parseFrame(data []byte, session string) *models.GenerateRequest {
	req := &models.GenerateRequest{SessionID: session}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var body models.GenerateRequest
		if err := json.Unmarshal(data, &body); err == nil {
			req.Query = body.Query
			if body.SessionID != "" {
				req.SessionID = body.SessionID
			}
			return req
		}
	}
	req.Query = trimmed
	return req
}

// answerFrame generates and streams one answer. Only write failures are
// returned; service errors are reported to the client as error frames.
func (s *Server) answerFrame(ctx context.Context, conn *websocket.Conn, req *models.GenerateRequest) error {
	reply, err := s.generate(ctx, req)
	if err != nil {
		status, msg := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("websocket generate failed", zap.String("session", req.SessionID), zap.Error(err))
		}
		return writeFrame(conn, Frame{Type: FrameError, Error: msg})
	}
	err = stream.Pace(ctx, reply.Chunks, s.cfg.Stream.Delay, func(c string) error {
		return writeFrame(conn, Frame{Type: FrameChunk, Data: c})
	})
	if err != nil {
		return err
	}
	return writeFrame(conn, Frame{Type: FrameDone, SessionID: reply.SessionID})
}

func writeFrame(conn *websocket.Conn, f Frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(f)
}
