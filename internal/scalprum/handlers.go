package scalprum

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/darkden-lab/portalhost/internal/httputil"
)

type Handlers struct {
	index *Index
}

func NewHandlers(index *Index) *Handlers {
	return &Handlers{index: index}
}

func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/scalprum/plugins", h.handlePlugins).Methods("GET")
	r.HandleFunc("/api/scalprum/{name}/{file:.+}", h.handleFile).Methods("GET", "HEAD")
}

func (h *Handlers) handlePlugins(w http.ResponseWriter, r *http.Request) {
	if err := h.index.Scan(); err != nil {
		log.Printf("scalprum: failed to scan plugins: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list plugins")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.index.Plugins())
}

func (h *Handlers) handleFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	full, err := h.index.Resolve(vars["name"], vars["file"])
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "file not found")
		return
	}

	f, err := os.Open(full)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "file not found")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		httputil.WriteError(w, http.StatusNotFound, "file not found")
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
