package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/darkden-lab/portalhost/internal/language"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Message types exchanged over a session socket.
const (
	TypeSession     = "session"
	TypeLanguage    = "language"
	TypeSetLanguage = "setLanguage"
	TypeError       = "error"
)

// Message is the JSON envelope in both directions.
type Message struct {
	Type          string               `json:"type"`
	Language      string               `json:"language,omitempty"`
	SessionID     string               `json:"sessionId,omitempty"`
	UserEntityRef string               `json:"userEntityRef,omitempty"`
	Persistence   language.Persistence `json:"persistence,omitempty"`
	Error         string               `json:"error,omitempty"`
}

// Session is one mounted client shell. It owns the live language of the
// client and, for signed-in users in database mode, a synchronizer keeping it
// in line with the stored preference.
type Session struct {
	ID            string
	UserEntityRef string

	conn *websocket.Conn
	hub  *Hub
	lang *language.Selector
	sync *language.Synchronizer

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newSession(hub *Hub, conn *websocket.Conn, userRef string, lang *language.Selector) *Session {
	return &Session{
		ID:            uuid.New().String(),
		UserEntityRef: userRef,
		conn:          conn,
		hub:           hub,
		lang:          lang,
		send:          make(chan []byte, 64),
	}
}

// Language returns the live language of the session.
func (s *Session) Language() string { return s.lang.Language() }

// Send queues msg for the client. Slow clients lose messages rather than
// block the caller.
func (s *Session) Send(msg Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("ws: failed to marshal message: %v", err)
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

func (s *Session) closeSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

// run drives the session until the socket closes.
func (s *Session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	unsubPush := s.lang.Subscribe(func(lang string) {
		s.Send(Message{Type: TypeLanguage, Language: lang})
	})
	if s.sync != nil {
		s.sync.Start(ctx)
	}

	go s.writePump()
	s.readPump()

	if s.sync != nil {
		s.sync.Stop()
	}
	unsubPush()
	s.hub.Unregister(s)
	s.conn.Close()
}

func (s *Session) readPump() {
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("ws: session %s read error: %v", s.ID, err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.Send(Message{Type: TypeError, Error: "invalid message"})
			continue
		}
		switch msg.Type {
		case TypeSetLanguage:
			if err := s.lang.SetLanguage(msg.Language); err != nil {
				if !errors.Is(err, language.ErrUnsupportedLanguage) {
					log.Printf("ws: session %s failed to set language: %v", s.ID, err)
				}
				s.Send(Message{Type: TypeError, Error: err.Error()})
			}
		default:
			s.Send(Message{Type: TypeError, Error: "unknown message type " + msg.Type})
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
