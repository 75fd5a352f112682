// Package engineers provides the engineer listing, capacity and
// availability endpoints.
package engineers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/staffplan/internal/models"
	"github.com/good-yellow-bee/staffplan/internal/staffing"
)

// Response helpers (local to avoid import cycle with api package)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type dataResponse struct {
	Data any `json:"data"`
}

const errCodeInternalError = "INTERNAL_ERROR"

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dataResponse{Data: data}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

// jsonServiceError maps an engine error onto the HTTP envelope. Store
// failures are logged and reported without detail.
func jsonServiceError(w http.ResponseWriter, op string, err error) {
	kind := staffing.KindOf(err)
	var e *staffing.Error
	message := "internal server error"
	if errors.As(err, &e) && kind != staffing.KindStoreFailure {
		message = e.Message
	}

	switch kind {
	case staffing.KindInvalidReference, staffing.KindValidation:
		jsonError(w, http.StatusBadRequest, string(kind), message)
	case staffing.KindNotFound:
		jsonError(w, http.StatusNotFound, string(kind), message)
	case staffing.KindUnauthorized:
		jsonError(w, http.StatusUnauthorized, string(kind), message)
	case staffing.KindForbidden:
		jsonError(w, http.StatusForbidden, string(kind), message)
	default:
		log.Printf("%s error: %v", op, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, message)
	}
}

// EngineerResponse is an engineer without credentials.
type EngineerResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Department  string   `json:"department"`
	Skills      []string `json:"skills"`
	Seniority   string   `json:"seniority"`
	MaxCapacity int      `json:"max_capacity"`
}

func toResponse(u *models.User) *EngineerResponse {
	skills := u.Skills
	if skills == nil {
		skills = []string{}
	}
	return &EngineerResponse{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Department:  u.Department,
		Skills:      skills,
		Seniority:   string(u.Seniority),
		MaxCapacity: u.MaxCapacity,
	}
}

// Handler handles engineer endpoints.
type Handler struct {
	service *staffing.Service
}

// NewHandler creates a new engineer handler.
func NewHandler(service *staffing.Service) *Handler {
	return &Handler{service: service}
}

// List returns every engineer. The optional skill and department query
// parameters filter the result (case-insensitive exact match).
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.Store().Users().ListByRole(r.Context(), models.RoleEngineer)
	if err != nil {
		log.Printf("list engineers error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	skill := strings.TrimSpace(r.URL.Query().Get("skill"))
	department := strings.TrimSpace(r.URL.Query().Get("department"))

	resp := make([]*EngineerResponse, 0, len(users))
	for _, u := range users {
		if department != "" && !strings.EqualFold(u.Department, department) {
			continue
		}
		if skill != "" && !hasSkill(u.Skills, skill) {
			continue
		}
		resp = append(resp, toResponse(u))
	}

	jsonOK(w, resp)
}

func hasSkill(skills []string, want string) bool {
	for _, s := range skills {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}

// GetByID returns one engineer.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	engineer, err := h.service.Engineer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		jsonServiceError(w, "get engineer", err)
		return
	}
	jsonOK(w, toResponse(engineer))
}

// Capacity returns the engineer's allocation for the current day.
func (h *Handler) Capacity(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Capacity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		jsonServiceError(w, "engineer capacity", err)
		return
	}
	jsonOK(w, report)
}

// Availability returns when the engineer next has free capacity.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	availability, err := h.service.NextAvailableDate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		jsonServiceError(w, "engineer availability", err)
		return
	}
	jsonOK(w, availability)
}
