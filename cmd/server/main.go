package main

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/darkden-lab/portalhost/docs"
	"github.com/darkden-lab/portalhost/internal/auth"
	"github.com/darkden-lab/portalhost/internal/config"
	"github.com/darkden-lab/portalhost/internal/db"
	"github.com/darkden-lab/portalhost/internal/events"
	"github.com/darkden-lab/portalhost/internal/i18n"
	"github.com/darkden-lab/portalhost/internal/i18n/overrides"
	"github.com/darkden-lab/portalhost/internal/language"
	"github.com/darkden-lab/portalhost/internal/metrics"
	mw "github.com/darkden-lab/portalhost/internal/middleware"
	"github.com/darkden-lab/portalhost/internal/plugin"
	"github.com/darkden-lab/portalhost/internal/scalprum"
	"github.com/darkden-lab/portalhost/internal/shell"
	"github.com/darkden-lab/portalhost/internal/usersettings"
	"github.com/darkden-lab/portalhost/internal/ws"
	"github.com/darkden-lab/portalhost/plugins/core"
)

const defaultPluginsRoot = "dynamic-plugins-root"

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	collector := metrics.NewCollector()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Server-side view of the app config. The shell reloads the files on
	// boot so it sees the same layers.
	loadLayers := func(context.Context) ([]config.Layer, error) {
		return config.LoadLayers(cfg.AppConfigPaths, os.Environ())
	}
	layers, err := loadLayers(ctx)
	if err != nil {
		log.Fatalf("Failed to load app config: %v", err)
	}
	appConfig := config.NewReader(config.OverrideBaseURLConfigs(layers, cfg.PublicOrigin)...)

	rawPersistence, _ := appConfig.GetOptionalString("userSettings.persistence")
	persistence := language.ParsePersistence(rawPersistence, nil)

	// User settings: only stored server side in database mode.
	var settingsSvc *usersettings.Service
	if persistence == language.PersistenceDatabase {
		store := newSettingsStore(ctx, cfg)
		if closer, ok := store.(interface{ Close() }); ok {
			defer closer.Close()
		}

		broker, err := events.NewBroker(cfg)
		if err != nil {
			log.Printf("WARNING: event broker setup failed: %v (using in-memory broker)", err)
			broker = events.NewInMemoryBroker()
		}
		defer broker.Close() //nolint:errcheck // best-effort cleanup on shutdown

		settingsSvc, err = usersettings.NewService(store, broker, collector)
		if err != nil {
			log.Fatalf("Failed to start user settings service: %v", err)
		}
		defer settingsSvc.Close() //nolint:errcheck
	} else {
		log.Println("User settings are kept in the browser; server side storage disabled")
	}

	// Translation overrides
	var i18nCfg i18n.Config
	if appConfig.Has("i18n") {
		if err := appConfig.Decode("i18n", &i18nCfg); err != nil {
			log.Printf("WARNING: invalid i18n config: %v", err)
		}
	}
	overridesSvc := overrides.NewService(i18nCfg.Overrides, i18nCfg.SupportedLocales(), nil)
	if len(i18nCfg.Overrides) > 0 {
		watcher, err := overrides.Watch(overridesSvc)
		if err != nil {
			log.Printf("WARNING: translation override watcher disabled: %v", err)
		} else {
			defer watcher.Stop() //nolint:errcheck
		}
	}

	// JWT & WebSocket hub
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	hub := ws.NewHub(collector)
	go hub.Run(ctx)

	// Host shell
	corePlugin := core.New()
	portal := shell.New(shell.Options{
		APIs:               shellAPIs(settingsSvc),
		StaticPlugins:      []plugin.Plugin{corePlugin},
		StaticTranslations: corePlugin.Translations(),
		ConfigLoader:       loadLayers,
		Persistence:        persistence,
		RuntimeOrigin:      cfg.PublicOrigin,
		Metrics:            collector,
	})

	// Router
	r := mux.NewRouter()

	// Rate limiting: 100 req/s per IP with burst of 200. Health checks, metrics and
	// session upgrades are not limited.
	r.Use(mw.RateLimitMiddleware(mw.RateLimitOptions{
		RPS:    100,
		Burst:  200,
		Exempt: []string{"/healthz", "/metrics", "/api/session"},
	}))

	// Health check and metrics (no auth)
	r.HandleFunc("/healthz", healthzHandler(portal)).Methods("GET")
	r.Handle("/metrics", collector.Handler()).Methods("GET")

	// API documentation (no auth)
	docs.RegisterRoutes(r)

	// Plugin discovery and bundles
	registerScalprum(r, cfg, appConfig)

	// Translation overrides
	overrides.NewHandlers(overridesSvc).RegisterRoutes(r)

	// Loaded plugins info
	plugin.NewHandlers(portal.Engine).RegisterRoutes(r)

	// Session sockets (auth handled inside handler)
	sessions := ws.NewSessionHandler(ws.Options{
		Hub:            hub,
		JWT:            jwtService,
		Settings:       sessionSettings(portal),
		Storage:        sessionStorage(settingsSvc),
		AllowedOrigins: allowedOrigins(cfg, appConfig),
		GuestEnabled:   cfg.GuestEnabled,
		Metrics:        collector,
		BaseContext:    ctx,
	})
	sessions.RegisterRoutes(r)

	// Protected routes
	if settingsSvc != nil {
		protected := r.PathPrefix("").Subrouter()
		protected.Use(mw.AuthMiddleware(jwtService))
		usersettings.NewHandlers(settingsSvc).RegisterRoutes(protected)
	}

	// App shell: loading page, bootstrap, translations
	portal.RegisterRoutes(r)

	// HTTP Server: CORS wraps the entire router so OPTIONS preflight
	// requests are handled before mux routing.
	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        mw.CORS(allowedOrigins(cfg, appConfig))(r),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("Shutting down server...")
		stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Fatalf("Server shutdown failed: %v", err)
		}
	}()

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}

	// Boot fetches the manifest from backend.baseUrl, which is usually this
	// server, so it starts once the listener is bound.
	portal.Start(ctx)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}

	log.Println("Server stopped")
}

// newSettingsStore opens Postgres and runs migrations. Without a database
// the server keeps settings in memory.
func newSettingsStore(ctx context.Context, cfg *config.Config) usersettings.Store {
	database, err := db.Open(ctx, cfg.DatabaseURL, cfg.MigrationsPath)
	if err != nil {
		log.Printf("WARNING: database unavailable: %v (user settings kept in memory)", err)
		return usersettings.NewMemoryStore()
	}
	return &pgSettingsStore{PGStore: usersettings.NewPGStore(database.Pool), db: database}
}

// pgSettingsStore ties the pool lifetime to the store.
type pgSettingsStore struct {
	*usersettings.PGStore
	db *db.DB
}

func (s *pgSettingsStore) Close() { s.db.Close() }

func registerScalprum(r *mux.Router, cfg *config.Config, appConfig *config.Reader) {
	if cfg.ScalprumUpstream != "" {
		p, err := scalprum.NewProxy(cfg.ScalprumUpstream, nil)
		if err != nil {
			log.Printf("WARNING: scalprum proxy disabled: %v", err)
		} else {
			p.RegisterRoutes(r)
			log.Printf("Proxying plugin discovery to %s", cfg.ScalprumUpstream)
			return
		}
	}

	root, ok := appConfig.GetOptionalString("dynamicPlugins.rootDirectory")
	if !ok || root == "" {
		root = defaultPluginsRoot
	}
	index := scalprum.NewIndex(root, nil)
	if err := index.Scan(); err != nil {
		log.Printf("WARNING: failed to scan dynamic plugins in %s: %v", root, err)
	}
	scalprum.NewHandlers(index).RegisterRoutes(r)
}

// shellAPIs lists the services plugins can reach during init. The user
// settings API is only offered when it is backed by server storage.
func shellAPIs(svc *usersettings.Service) map[string]any {
	apis := map[string]any{}
	if svc != nil {
		apis["userSettings"] = svc
	}
	return apis
}

func sessionSettings(portal *shell.Shell) ws.Settings {
	return func() (*i18n.Config, language.Persistence, bool) {
		app := portal.App()
		if app == nil {
			return nil, "", false
		}
		return app.Translation, app.Persistence, true
	}
}

func sessionStorage(svc *usersettings.Service) ws.StorageFunc {
	if svc == nil {
		return nil
	}
	return func(userRef string) language.Storage {
		return svc.Bucket(userRef, language.Bucket)
	}
}

func allowedOrigins(cfg *config.Config, appConfig *config.Reader) []string {
	var origins []string
	for _, o := range strings.Split(cfg.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if o, ok := appConfig.GetOptionalString("backend.cors.origin"); ok && o != "" {
		origins = append(origins, o)
	}
	return origins
}

func healthzHandler(portal *shell.Shell) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "loading"
		select {
		case <-portal.Done():
			status = "ok"
			if portal.Err() != nil {
				status = "degraded"
			}
		default:
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}
