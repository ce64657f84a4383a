package usersettings

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/darkden-lab/portalhost/internal/auth"
	"github.com/darkden-lab/portalhost/internal/httputil"
)

// Handlers serves the user settings REST API. Routes must be registered on a
// router guarded by the auth middleware.
type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/user-settings/buckets/{bucket}/keys/{key}", h.Get).Methods("GET")
	r.HandleFunc("/api/user-settings/buckets/{bucket}/keys/{key}", h.Put).Methods("PUT")
	r.HandleFunc("/api/user-settings/buckets/{bucket}/keys/{key}", h.Delete).Methods("DELETE")
}

type putRequest struct {
	Value json.RawMessage `json:"value"`
}

func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	setting, err := h.svc.Get(r.Context(), auth.UserEntityRef(r.Context()), vars["bucket"], vars["key"])
	if errors.Is(err, ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "setting not found")
		return
	}
	if err != nil {
		log.Printf("usersettings: get %s/%s: %v", vars["bucket"], vars["key"], err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to read setting")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, setting)
}

func (h *Handlers) Put(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req putRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil || len(req.Value) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "request body must be {\"value\": <json>}")
		return
	}

	setting, err := h.svc.Set(r.Context(), auth.UserEntityRef(r.Context()), vars["bucket"], vars["key"], req.Value)
	if err != nil {
		log.Printf("usersettings: set %s/%s: %v", vars["bucket"], vars["key"], err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to store setting")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, setting)
}

func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	err := h.svc.Delete(r.Context(), auth.UserEntityRef(r.Context()), vars["bucket"], vars["key"])
	if errors.Is(err, ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "setting not found")
		return
	}
	if err != nil {
		log.Printf("usersettings: delete %s/%s: %v", vars["bucket"], vars["key"], err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to delete setting")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
