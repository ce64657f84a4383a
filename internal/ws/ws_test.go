package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/darkden-lab/portalhost/internal/auth"
	"github.com/darkden-lab/portalhost/internal/events"
	"github.com/darkden-lab/portalhost/internal/i18n"
	"github.com/darkden-lab/portalhost/internal/language"
	"github.com/darkden-lab/portalhost/internal/usersettings"
)

var testCfg = &i18n.Config{Locales: []string{"en", "fr", "de"}}

type testEnv struct {
	server *httptest.Server
	hub    *Hub
	jwt    *auth.JWTService
	svc    *usersettings.Service
	ready  atomic.Bool
}

func newTestEnv(t *testing.T, guests bool) *testEnv {
	t.Helper()
	broker := events.NewInMemoryBroker()
	svc, err := usersettings.NewService(usersettings.NewMemoryStore(), broker, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	env := &testEnv{hub: NewHub(nil), jwt: auth.NewJWTService("test-secret"), svc: svc}
	env.ready.Store(true)
	go env.hub.Run(ctx)

	h := NewSessionHandler(Options{
		Hub: env.hub,
		JWT: env.jwt,
		Settings: func() (*i18n.Config, language.Persistence, bool) {
			return testCfg, language.PersistenceDatabase, env.ready.Load()
		},
		Storage: func(userRef string) language.Storage {
			return svc.Bucket(userRef, language.Bucket)
		},
		GuestEnabled: guests,
		BaseContext:  ctx,
	})
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	env.server = httptest.NewServer(r)

	t.Cleanup(func() {
		env.server.Close()
		cancel()
		svc.Close()
		broker.Close()
	})
	return env
}

func (e *testEnv) dial(t *testing.T, query string, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/api/session" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial: %v (status %d)", err, status)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(Message) bool) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func languageIs(lang string) func(Message) bool {
	return func(m Message) bool { return m.Type == TypeLanguage && m.Language == lang }
}

func TestGuestSession(t *testing.T) {
	env := newTestEnv(t, true)
	header := http.Header{"Accept-Language": {"de-DE,de;q=0.9"}}
	conn := env.dial(t, "?lang=fr", header)

	hello := readUntil(t, conn, func(m Message) bool { return m.Type == TypeSession })
	if hello.UserEntityRef != auth.GuestUserRef || hello.SessionID == "" {
		t.Errorf("unexpected session message: %+v", hello)
	}
	readUntil(t, conn, languageIs("fr"))

	conn.WriteJSON(Message{Type: TypeSetLanguage, Language: "de"})
	readUntil(t, conn, languageIs("de"))

	conn.WriteJSON(Message{Type: TypeSetLanguage, Language: "ja"})
	if msg := readUntil(t, conn, func(m Message) bool { return m.Type == TypeError }); !strings.Contains(msg.Error, "unsupported") {
		t.Errorf("unexpected error message: %+v", msg)
	}

	conn.WriteMessage(websocket.TextMessage, []byte("not json"))
	readUntil(t, conn, func(m Message) bool { return m.Type == TypeError && m.Error == "invalid message" })

	if _, err := env.svc.Get(context.Background(), auth.GuestUserRef, language.Bucket, language.Key); err == nil {
		t.Error("guest sessions must never store a preference")
	}
}

func TestGuestSessionDefaultsFromBrowser(t *testing.T) {
	env := newTestEnv(t, true)
	conn := env.dial(t, "", http.Header{"Accept-Language": {"de-DE,de;q=0.9"}})
	readUntil(t, conn, languageIs("de"))
}

func TestUserSessionSyncsStoredPreference(t *testing.T) {
	env := newTestEnv(t, true)
	userRef := "user:default/alice"
	if err := env.svc.Bucket(userRef, language.Bucket).Set(context.Background(), language.Key, "de"); err != nil {
		t.Fatalf("seed preference: %v", err)
	}
	token, _ := env.jwt.GenerateToken(userRef, "Alice")

	conn := env.dial(t, "?lang=en&token="+token, nil)
	hello := readUntil(t, conn, func(m Message) bool { return m.Type == TypeSession })
	if hello.UserEntityRef != userRef {
		t.Errorf("expected %s, got %s", userRef, hello.UserEntityRef)
	}
	readUntil(t, conn, languageIs("de"))

	conn.WriteJSON(Message{Type: TypeSetLanguage, Language: "fr"})
	readUntil(t, conn, languageIs("fr"))

	deadline := time.Now().Add(2 * time.Second)
	for {
		setting, err := env.svc.Get(context.Background(), userRef, language.Bucket, language.Key)
		if err == nil && string(setting.Value) == `"fr"` {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("preference was not stored, last=%v err=%v", setting, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSessionRejections(t *testing.T) {
	env := newTestEnv(t, false)
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/session"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token when guests are disabled, got %v", resp)
	}

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=garbage", nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for invalid token, got %v", resp)
	}

	env.ready.Store(false)
	token, _ := env.jwt.GenerateToken("user:default/bob", "")
	_, resp, err = websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 while loading, got %v", resp)
	}
}

func TestHubTracksSessions(t *testing.T) {
	env := newTestEnv(t, true)
	conn := env.dial(t, "", nil)
	readUntil(t, conn, func(m Message) bool { return m.Type == TypeSession })

	waitCount := func(want int) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for env.hub.Count() != want {
			if time.Now().After(deadline) {
				t.Fatalf("expected %d sessions, got %d", want, env.hub.Count())
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
	waitCount(1)
	if got := env.hub.UserSessions(auth.GuestUserRef); len(got) != 1 {
		t.Errorf("expected one guest session, got %d", len(got))
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	waitCount(0)
}

func TestOriginChecker(t *testing.T) {
	check := OriginChecker([]string{"https://portal.example.com"})

	req := httptest.NewRequest("GET", "http://localhost:7007/api/session", nil)
	if !check(req) {
		t.Error("request without origin must pass")
	}
	req.Header.Set("Origin", "http://localhost:7007")
	if !check(req) {
		t.Error("same host origin must pass")
	}
	req.Header.Set("Origin", "https://PORTAL.example.com")
	if !check(req) {
		t.Error("allowed origin must pass case-insensitively")
	}
	req.Header.Set("Origin", "https://evil.example.com")
	if check(req) {
		t.Error("foreign origin must be rejected")
	}
}
