package sessions

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ielts-prep/backend/internal/content"
	"github.com/ielts-prep/backend/internal/middleware"
	"github.com/ielts-prep/backend/internal/models"
	"github.com/ielts-prep/backend/internal/practice"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the practice routes on a router that already
// authenticates.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/content/passages", h.ListPassages).Methods("GET")

	p := r.PathPrefix("/practice").Subrouter()
	p.HandleFunc("/sessions", h.StartSession).Methods("POST")
	p.HandleFunc("/sessions/{id}", h.GetSession).Methods("GET")
	p.HandleFunc("/sessions/{id}/answers", h.SetAnswer).Methods("PUT")
	p.HandleFunc("/sessions/{id}/words", h.PlaceWord).Methods("POST")
	p.HandleFunc("/sessions/{id}/words/{blank_id}", h.RemoveWord).Methods("DELETE")
	p.HandleFunc("/sessions/{id}/submit", h.Submit).Methods("POST")
	p.HandleFunc("/sessions/{id}/result", h.GetResult).Methods("GET")
	p.HandleFunc("/sessions/{id}/explain", h.Explain).Methods("POST")
}

// ── Content ─────────────────────────────────────────────

func (h *Handler) ListPassages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Passages(r.URL.Query().Get("skill")))
}

// ── Sessions ────────────────────────────────────────────

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	view, err := h.service.Start(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	view, err := h.service.Get(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) SetAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.SetAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	view, err := h.service.Answer(r.Context(), userID, mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) PlaceWord(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.PlaceWordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	view, err := h.service.PlaceWord(r.Context(), userID, mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) RemoveWord(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	view, err := h.service.RemoveWord(r.Context(), userID, vars["id"], vars["blank_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ── Submission ──────────────────────────────────────────

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	result, err := h.service.Submit(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	result, err := h.service.Result(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.ExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	resp, err := h.service.Explain(r.Context(), userID, mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ── Helpers ─────────────────────────────────────────────

func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
	}
	return userID, ok
}

func writeError(w http.ResponseWriter, err error) {
	var incomplete *practice.IncompleteError
	var malformed *practice.MalformedContentError

	switch {
	case errors.As(err, &incomplete):
		writeJSON(w, http.StatusConflict, models.IncompleteResponse{Error: "Answer every question before submitting", Missing: incomplete.Missing})
	case errors.As(err, &malformed):
		writeJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden):
		// Another learner's session is reported as missing.
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: ErrNotFound.Error()})
	case errors.Is(err, content.ErrNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, practice.ErrSubmitted), errors.Is(err, practice.ErrNotSubmitted):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, practice.ErrUnknownSlot),
		errors.Is(err, practice.ErrNotWordBank),
		errors.Is(err, practice.ErrWordNotInBank),
		errors.Is(err, practice.ErrInvalidAnswer):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrCoachUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: err.Error()})
	default:
		log.Printf("[sessions] unexpected error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
