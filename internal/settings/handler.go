package settings

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
)

// kvPayload is the request/response body of the key/value HTTP surface.
type kvPayload struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the key/value settings HTTP surface backed by a Store.
type Handler struct {
	store  *Store
	logger *log.Logger
}

// NewHandler constructs the settings HTTP handler.
func NewHandler(store *Store, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{store: store, logger: logger}
}

// ServeHTTP implements GET (lookup by key query parameter), POST (upsert with
// a JSON body) and DELETE (remove by JSON body). Anything else yields 405
// with an Allow header.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r)
	case http.MethodPost:
		h.handlePost(w, r)
	case http.MethodDelete:
		h.handleDelete(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if key == "" {
		h.writeError(w, http.StatusBadRequest, "key query parameter required")
		return
	}

	value, err := h.store.Get(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "key not found")
			return
		}
		h.logger.Printf("[Settings] get %q: %v", key, err)
		h.writeError(w, http.StatusInternalServerError, "settings read failed")
		return
	}

	h.writeJSON(w, http.StatusOK, kvPayload{Key: key, Value: value})
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}

	if err := h.store.Set(payload.Key, payload.Value); err != nil {
		h.logger.Printf("[Settings] set %q: %v", payload.Key, err)
		h.writeError(w, http.StatusInternalServerError, "settings write failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}

	if err := h.store.Remove(payload.Key); err != nil {
		h.logger.Printf("[Settings] remove %q: %v", payload.Key, err)
		h.writeError(w, http.StatusInternalServerError, "settings write failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request) (kvPayload, bool) {
	var payload kvPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return payload, false
	}
	payload.Key = strings.TrimSpace(payload.Key)
	if payload.Key == "" {
		h.writeError(w, http.StatusBadRequest, "key required")
		return payload, false
	}
	return payload, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Printf("[Settings] write response: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Error: message})
}
