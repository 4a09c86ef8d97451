package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/comigor/msghook/internal/apperr"
	"github.com/comigor/msghook/internal/inbox"
	"github.com/comigor/msghook/internal/logger"
	"github.com/comigor/msghook/internal/signature"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	inbox        *inbox.Service
	maxBodyBytes int64
}

// NewHandler creates a new Handler around svc.
func NewHandler(svc *inbox.Service, maxBodyBytes int64) *Handler {
	return &Handler{inbox: svc, maxBodyBytes: maxBodyBytes}
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string       `json:"detail"`
	Errors []FieldIssue `json:"errors,omitempty"`
}

// FieldIssue names one invalid input field.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.L.Warn("failed to encode response", "error", err)
	}
}

// Error maps err onto its status and a body that never exposes internals.
func (h *Handler) Error(w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	resp := ErrorResponse{}
	switch apperr.KindOf(err) {
	case apperr.KindAuth:
		resp.Detail = "invalid signature"
	case apperr.KindConfig:
		resp.Detail = "webhook secret not configured"
	case apperr.KindValidation:
		resp.Detail = "validation failed"
		for _, f := range apperr.Fields(err) {
			resp.Errors = append(resp.Errors, FieldIssue{Field: f.Field, Message: f.Message})
		}
	default:
		resp.Detail = "internal error"
	}
	h.JSON(w, status, resp)
}

// Webhook handles POST /webhook.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.JSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Detail: "request body too large"})
			return
		}
		h.JSON(w, http.StatusBadRequest, ErrorResponse{Detail: "failed to read request body"})
		return
	}

	if _, err := h.inbox.Ingest(r.Context(), body, r.Header.Get(signature.Header)); err != nil {
		h.Error(w, err)
		return
	}
	h.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListMessages handles GET /messages.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	var (
		q      = inbox.Query{From: params.Get("from"), To: params.Get("to")}
		issues []apperr.FieldError
	)
	for _, p := range []struct {
		name string
		dst  **int
	}{
		{"limit", &q.Limit},
		{"offset", &q.Offset},
	} {
		raw := params.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			issues = append(issues, apperr.FieldError{Field: p.name, Message: "must be an integer"})
			continue
		}
		*p.dst = &n
	}
	if len(issues) > 0 {
		h.Error(w, apperr.Validation(issues...))
		return
	}

	res, err := h.inbox.List(r.Context(), q)
	if err != nil {
		h.Error(w, err)
		return
	}
	h.JSON(w, http.StatusOK, res)
}

// Live handles GET /health/live.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, map[string]string{"status": "live"})
}

// Ready handles GET /health/ready.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
