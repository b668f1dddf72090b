package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/goodtune/zentube/internal/engine"
	"github.com/goodtune/zentube/internal/notify"
	"github.com/goodtune/zentube/internal/playback"
	"github.com/goodtune/zentube/internal/watchtime"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 64 * 1024
	outboxSize = 64
)

// Inbound message types on the player socket.
const (
	MsgPlayer     = "player"
	MsgVisibility = "visibility"
	MsgFocus      = "focus"
	MsgBreak      = "break"
)

// Outbound message types on the player socket.
const (
	MsgToast   = "toast"
	MsgPlaying = "playing"
	MsgStatus  = "status"
	MsgCommand = "command"
)

// PlayerMessage is sent by the watch page.
type PlayerMessage struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
	Hidden  bool            `json:"hidden,omitempty"`
	Focused bool            `json:"focused,omitempty"`
	Action  string          `json:"action,omitempty"`
}

// Envelope wraps every message sent to the watch page.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// handlePlayer mounts one player session for the lifetime of the socket.
func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	session, err := s.engine.NewSession()
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(writeWait))
		return
	}

	logger := s.logger.With().Str("session_id", session.ID()).Logger()
	logger.Info().Str("remote_addr", r.RemoteAddr).Msg("Player connected")

	outbox := make(chan Envelope, outboxSize)
	send := func(msgType string, data interface{}) {
		select {
		case outbox <- Envelope{Type: msgType, Data: data}:
		default:
			logger.Warn().Str("type", msgType).Msg("Player outbox full, dropping message")
		}
	}

	session.Toasts().Subscribe(func(t notify.Toast) { send(MsgToast, t) })
	session.PlayingChanges().Subscribe(func(pc playback.PlayingChanged) { send(MsgPlaying, pc) })
	session.StatusChanges().Subscribe(func(st watchtime.Status) { send(MsgStatus, st) })
	session.Commands().Subscribe(func(cmd playback.Command) { send(MsgCommand, cmd) })
	session.BreakChanges().Subscribe(func(b engine.BreakState) { send(MsgBreak, b) })

	send(MsgStatus, s.engine.Status(r.Context()))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump(conn, outbox)
	}()

	// Unmounting from elsewhere (engine shutdown) closes the socket.
	go func() {
		<-session.Done()
		_ = conn.Close()
	}()

	s.readPump(conn, session)

	session.Close()
	// The session's topics are closed once Close returns, so nothing sends
	// on the outbox any more.
	close(outbox)
	<-writerDone

	logger.Info().Msg("Player disconnected")
}

func (s *Server) readPump(conn *websocket.Conn, session *engine.Session) {
	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg PlayerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug().Err(err).Str("session_id", session.ID()).Msg("Player socket closed")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case MsgPlayer:
			session.HandlePlayerMessage(msg.Data)
		case MsgVisibility:
			session.SetVisibility(msg.Hidden)
		case MsgFocus:
			session.SetFocus(msg.Focused)
		case MsgBreak:
			switch msg.Action {
			case notify.ActionDismiss:
				session.DismissBreak()
			case notify.ActionSnooze:
				session.SnoozeBreak()
			}
		default:
			s.logger.Debug().Str("type", msg.Type).Msg("Ignoring unknown player message")
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, outbox <-chan Envelope) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-outbox:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Debug().Err(err).Msg("Player write failed")
				// Keep draining so senders never block on a dead socket.
				for range outbox {
				}
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				for range outbox {
				}
				return
			}
		}
	}
}
