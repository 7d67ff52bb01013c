package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"whisper.share/internal/logging"
	"whisper.share/internal/service"
	"whisper.share/internal/store"
	"whisper.share/web"
)

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

type CreateRequest struct {
	Title         string   `json:"title,omitempty"`
	Content       string   `json:"content"`
	TTLHours      int      `json:"ttl_hours,omitempty"`
	AllowedUsers  []string `json:"allowed_users,omitempty"`
	AllowedGroups []string `json:"allowed_groups,omitempty"`
}

type CreateResponse struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	ShareURL  string    `json:"share_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type RevealResponse struct {
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content"`
	Creator   string    `json:"creator"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateSecret(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.CreateSecret(r.Context(), identity.Name, service.CreateInput{
		Title:         req.Title,
		Content:       req.Content,
		TTLHours:      req.TTLHours,
		AllowedUsers:  req.AllowedUsers,
		AllowedGroups: req.AllowedGroups,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateResponse{
		ID:        result.ID,
		Token:     result.Token,
		ShareURL:  result.ShareURL,
		ExpiresAt: result.ExpiresAt,
	})
}

func (h *Handler) RevealSecret(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	token := chi.URLParam(r, "token")
	result, err := h.svc.RevealSecret(r.Context(), token, identity.Name, identity.Groups)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RevealResponse{
		Title:     result.Title,
		Content:   result.Content,
		Creator:   result.Creator,
		ExpiresAt: result.ExpiresAt,
	})
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, "index.html")
}

func (h *Handler) RevealPage(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, "reveal.html")
}

func (h *Handler) serveFile(w http.ResponseWriter, filename string) {
	content, err := web.GetFile(filename)
	if err != nil {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(content)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "secret not found")
	case errors.Is(err, service.ErrGone):
		writeError(w, http.StatusGone, "secret has expired")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "not authorized")
	default:
		logging.Errorf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
