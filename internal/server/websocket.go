package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zeusync/openworld/internal/core/components"
	"github.com/zeusync/openworld/internal/core/observability/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("WebSocket upgrade failed", log.Error(err))
		return
	}

	sess := &session{
		id:          uuid.NewString(),
		conn:        conn,
		send:        make(chan []byte, s.config.SendBuffer),
		digests:     make(map[components.ObjectID]uint64),
		connectedAt: time.Now(),
	}

	reply := make(chan error, 1)
	if !s.enqueue(command{kind: commandJoin, session: sess, reply: reply}) {
		s.reject(conn, websocket.CloseGoingAway, ErrServerClosed)
		return
	}

	select {
	case err = <-reply:
	case <-s.done:
		err = ErrServerClosed
	case <-r.Context().Done():
		err = r.Context().Err()
	}
	if err != nil {
		code := websocket.CloseGoingAway
		if errors.Is(err, ErrMaxClientsReached) {
			code = websocket.CloseTryAgainLater
		}
		s.logger.Info("Client rejected", log.String("client_id", sess.id), log.Error(err))
		s.reject(conn, code, err)
		return
	}

	go s.writeLoop(sess)
	s.readLoop(sess)
}

func (s *Server) reject(conn *websocket.Conn, code int, reason error) {
	msg := websocket.FormatCloseMessage(code, reason.Error())
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.config.WriteTimeout))
	_ = conn.Close()
}

// readLoop decodes input until the connection fails or the client sends
// something that is not an Input, then leaves.
func (s *Server) readLoop(sess *session) {
	defer s.enqueue(command{kind: commandLeave, session: sess})

	sess.conn.SetReadLimit(s.config.MaxMessageSize)
	for {
		kind, payload, err := sess.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				s.logger.Debug("Client read failed", log.String("client_id", sess.id), log.Error(err))
			}
			return
		}
		var in Input
		if kind != websocket.TextMessage || json.Unmarshal(payload, &in) != nil {
			s.logger.Debug("Client sent invalid input", log.String("client_id", sess.id))
			s.reject(sess.conn, websocket.CloseInvalidFramePayloadData, ErrInvalidMessage)
			return
		}
		if !s.enqueue(command{kind: commandInput, session: sess, input: in}) {
			return
		}
	}
}

// writeLoop sends frames until the tick goroutine closes the queue.
func (s *Server) writeLoop(sess *session) {
	defer func() { _ = sess.conn.Close() }()

	for frame := range sess.send {
		_ = sess.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		if err := sess.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			s.logger.Debug("Client write failed", log.String("client_id", sess.id), log.Error(err))
			// the read side notices the closed connection and leaves
			_ = sess.conn.Close()
			for range sess.send {
			}
			return
		}
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = sess.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.config.WriteTimeout))
}
