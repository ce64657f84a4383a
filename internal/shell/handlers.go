package shell

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/darkden-lab/portalhost/internal/httputil"
	"github.com/darkden-lab/portalhost/internal/i18n"
)

var loadingPage = template.Must(template.New("loading").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="2">
<title>Loading…</title>
</head>
<body>
<div id="root" data-state="loading">Loading…</div>
</body>
</html>
`))

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Portal unavailable</title>
</head>
<body>
<div id="root" data-state="error">The portal failed to start: {{.}}</div>
</body>
</html>
`))

var appPage = template.Must(template.New("app").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script id="portal-bootstrap" type="application/json">{{.Bootstrap}}</script>
{{range .Scripts}}<script defer src="{{.}}"></script>
{{end}}</head>
<body>
<div id="root" data-state="ready"></div>
</body>
</html>
`))

type appPageData struct {
	Lang      string
	Title     string
	Bootstrap Bootstrap
	Scripts   []string
}

func (s *Shell) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/app/bootstrap", s.handleBootstrap).Methods("GET")
	r.HandleFunc("/api/app/translations/{resourceId}/{locale}", s.handleTranslations).Methods("GET")
	r.HandleFunc("/", s.handleIndex).Methods("GET")
}

func (s *Shell) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	select {
	case <-s.done:
	default:
		w.WriteHeader(http.StatusOK)
		loadingPage.Execute(w, nil) //nolint:errcheck
		return
	}

	app := s.App()
	if app == nil {
		w.WriteHeader(http.StatusInternalServerError)
		errorPage.Execute(w, errorMessage(s.Err())) //nolint:errcheck
		return
	}

	var scripts []string
	for _, m := range app.Plugins.Manifests() {
		scripts = append(scripts, m.LoadScripts...)
	}
	lang := i18n.DefaultLocale
	if app.Translation != nil && app.Translation.DefaultLocale != "" {
		lang = app.Translation.DefaultLocale
	}
	data := appPageData{Lang: lang, Title: app.Title, Bootstrap: app.Bootstrap(), Scripts: scripts}
	if err := appPage.Execute(w, data); err != nil {
		s.logger.Printf("shell: failed to render app page: %v", err)
	}
}

func errorMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// settled writes the loading or failure response and returns nil unless the
// app is ready.
func (s *Shell) settled(w http.ResponseWriter) *App {
	select {
	case <-s.done:
	default:
		w.Header().Set("Retry-After", "1")
		httputil.WriteError(w, http.StatusServiceUnavailable, "application is loading")
		return nil
	}
	app := s.App()
	if app == nil {
		httputil.WriteError(w, http.StatusInternalServerError, "application failed to start")
	}
	return app
}

func (s *Shell) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	app := s.settled(w)
	if app == nil {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app.Bootstrap())
}

func (s *Shell) handleTranslations(w http.ResponseWriter, r *http.Request) {
	app := s.settled(w)
	if app == nil {
		return
	}
	vars := mux.Vars(r)
	resource := app.Resource(vars["resourceId"])
	if resource == nil {
		httputil.WriteError(w, http.StatusNotFound, "translation resource not found")
		return
	}
	msgs, err := resource.Load(r.Context(), vars["locale"])
	if errors.Is(err, i18n.ErrUnknownLanguage) {
		httputil.WriteError(w, http.StatusNotFound, "locale not available for this resource")
		return
	}
	if err != nil {
		s.logger.Printf("WARNING: shell: failed to load %s/%s: %v", vars["resourceId"], vars["locale"], err)
		httputil.WriteError(w, http.StatusBadGateway, "failed to load translation messages")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, msgs)
}
