package plugin

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/darkden-lab/portalhost/internal/httputil"
)

// Source yields the engine once boot has loaded plugins. It returns nil while
// boot is in progress.
type Source func() *Engine

type Handlers struct {
	source Source
}

func NewHandlers(source Source) *Handlers {
	return &Handlers{source: source}
}

func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/dynamic-plugins-info/loaded-plugins", h.handleLoaded).Methods("GET")
}

func (h *Handlers) handleLoaded(w http.ResponseWriter, r *http.Request) {
	var plugins []PluginInfo
	if engine := h.source(); engine != nil {
		plugins = engine.ListAll()
	}
	if plugins == nil {
		plugins = []PluginInfo{}
	}
	httputil.WriteJSON(w, http.StatusOK, plugins)
}
