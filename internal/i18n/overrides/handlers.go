package overrides

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/darkden-lab/portalhost/internal/httputil"
)

// Handlers exposes the override service over HTTP.
type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/translation", h.Get).Methods("GET")
}

// Get returns the merged overrides, 404 when none of the files holds valid
// data and 500 when a file cannot be processed.
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Overrides()
	if errors.Is(err, ErrNoOverrides) {
		httputil.WriteError(w, http.StatusNotFound, "No valid translation overrides found in the provided files")
		return
	}
	if err != nil {
		h.svc.logger.Printf("WARNING: Failed to process translation override files: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to process translation override files")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
