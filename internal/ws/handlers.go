package ws

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/darkden-lab/portalhost/internal/auth"
	"github.com/darkden-lab/portalhost/internal/httputil"
	"github.com/darkden-lab/portalhost/internal/i18n"
	"github.com/darkden-lab/portalhost/internal/language"
	"github.com/darkden-lab/portalhost/internal/metrics"
)

// Settings reports the translation config and persistence mode of the booted
// app. ok is false while the app is still loading.
type Settings func() (cfg *i18n.Config, persistence language.Persistence, ok bool)

// StorageFunc returns the settings bucket of a user, or nil when preferences
// are not stored server side.
type StorageFunc func(userEntityRef string) language.Storage

type Options struct {
	Hub            *Hub
	JWT            *auth.JWTService
	Settings       Settings
	Storage        StorageFunc
	AllowedOrigins []string
	GuestEnabled   bool
	Metrics        *metrics.Collector

	// BaseContext scopes the background work of every session.
	BaseContext context.Context
}

// SessionHandler upgrades GET /api/session to a session socket.
type SessionHandler struct {
	opts     Options
	upgrader websocket.Upgrader
}

func NewSessionHandler(opts Options) *SessionHandler {
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}
	return &SessionHandler{
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     OriginChecker(opts.AllowedOrigins),
		},
	}
}

func (h *SessionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/session", h.ServeWS).Methods(http.MethodGet)
}

// ServeWS authenticates the request, picks the initial language and upgrades
// the connection. Requests without a token become guest sessions when guests
// are enabled.
func (h *SessionHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userRef := auth.GuestUserRef
	if token := auth.TokenFromRequest(r); token != "" {
		claims, err := h.opts.JWT.ValidateToken(token)
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		userRef = claims.UserEntityRef
	} else if !h.opts.GuestEnabled {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cfg, persistence, ok := h.opts.Settings()
	if !ok {
		w.Header().Set("Retry-After", "1")
		httputil.WriteError(w, http.StatusServiceUnavailable, "application is loading")
		return
	}

	browser := language.BrowserFromAcceptLanguage(r.Header.Get("Accept-Language"))
	initial := r.URL.Query().Get("lang")
	if !cfg.Supports(initial) {
		initial = language.DefaultLanguage(cfg, browser)
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader already wrote the error response.
		return
	}

	s := newSession(h.opts.Hub, conn, userRef, language.NewSelector(cfg, initial))
	var storage language.Storage
	if h.opts.Storage != nil {
		storage = h.opts.Storage(userRef)
	}
	if storage != nil {
		s.sync = language.NewSynchronizer(language.Options{
			Language:    s.lang,
			Storage:     storage,
			Identity:    func(context.Context) (string, error) { return userRef, nil },
			Persistence: persistence,
			Translation: cfg,
			Browser:     browser,
			Metrics:     h.opts.Metrics,
		})
	}

	h.opts.Hub.Register(s)
	s.Send(Message{Type: TypeSession, SessionID: s.ID, UserEntityRef: userRef, Persistence: persistence})
	go s.run(h.opts.BaseContext)
}
