// Package assignments provides the assignment endpoints. Creation and
// update go through the capacity engine.
package assignments

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/good-yellow-bee/staffplan/internal/access"
	"github.com/good-yellow-bee/staffplan/internal/api/middleware"
	"github.com/good-yellow-bee/staffplan/internal/models"
	"github.com/good-yellow-bee/staffplan/internal/staffing"
	"github.com/good-yellow-bee/staffplan/internal/storage"
)

// Response helpers (local to avoid import cycle with api package)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string                   `json:"code"`
	Message string                   `json:"message"`
	Details *staffing.CapacityDetail `json:"details,omitempty"`
}

type dataResponse struct {
	Data any `json:"data"`
}

const (
	errCodeBadRequest    = "BAD_REQUEST"
	errCodeForbidden     = string(staffing.KindForbidden)
	errCodeInternalError = "INTERNAL_ERROR"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

func jsonOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, dataResponse{Data: data})
}

func jsonCreated(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, dataResponse{Data: data})
}

func jsonNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func jsonInternal(w http.ResponseWriter, op string, err error) {
	log.Printf("%s error: %v", op, err)
	jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
}

// statusFor maps an engine error kind to an HTTP status.
func statusFor(kind staffing.Kind) int {
	switch kind {
	case staffing.KindInvalidReference, staffing.KindValidation:
		return http.StatusBadRequest
	case staffing.KindUnauthorized:
		return http.StatusUnauthorized
	case staffing.KindForbidden:
		return http.StatusForbidden
	case staffing.KindNotFound:
		return http.StatusNotFound
	case staffing.KindCapacityExceeded:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// jsonServiceError writes an engine error. Capacity rejections carry the
// numbers behind the decision.
func jsonServiceError(w http.ResponseWriter, op string, err error) {
	var e *staffing.Error
	if !errors.As(err, &e) || e.Kind == staffing.KindStoreFailure {
		jsonInternal(w, op, err)
		return
	}
	if e.Kind == staffing.KindCapacityExceeded {
		log.Printf("%s rejected: %s", op, e.Message)
	}
	writeJSON(w, statusFor(e.Kind), errorResponse{Error: errorBody{
		Code:    string(e.Kind),
		Message: e.Message,
		Details: e.Capacity,
	}})
}

// EngineerRef identifies the engineer of an assignment.
type EngineerRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ProjectRef identifies the project of an assignment.
type ProjectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AssignmentResponse is the API shape of an assignment. Engineer and
// project are nil when the referenced record no longer exists.
type AssignmentResponse struct {
	ID                   string       `json:"id"`
	EngineerID           string       `json:"engineer_id"`
	ProjectID            string       `json:"project_id"`
	Engineer             *EngineerRef `json:"engineer"`
	Project              *ProjectRef  `json:"project"`
	AllocationPercentage int          `json:"allocation_percentage"`
	StartDate            string       `json:"start_date"`
	EndDate              string       `json:"end_date"`
	Role                 string       `json:"role"`
	CreatedAt            string       `json:"created_at"`
	UpdatedAt            string       `json:"updated_at"`
}

// Handler handles assignment endpoints.
type Handler struct {
	storage storage.Storage
	service *staffing.Service
}

// NewHandler creates a new assignment handler.
func NewHandler(service *staffing.Service) *Handler {
	return &Handler{storage: service.Store(), service: service}
}

// CreateRequest is the request body for creating an assignment.
type CreateRequest struct {
	EngineerID           string `json:"engineer_id"`
	ProjectID            string `json:"project_id"`
	AllocationPercentage *int   `json:"allocation_percentage"`
	StartDate            string `json:"start_date"`
	EndDate              string `json:"end_date"`
	Role                 string `json:"role"`
}

// UpdateRequest is the request body for updating an assignment. Absent
// fields keep their value.
type UpdateRequest struct {
	EngineerID           *string `json:"engineer_id"`
	ProjectID            *string `json:"project_id"`
	AllocationPercentage *int    `json:"allocation_percentage"`
	StartDate            *string `json:"start_date"`
	EndDate              *string `json:"end_date"`
	Role                 *string `json:"role"`
}

// List returns assignments. Managers see all of them and may filter by
// engineer_id and project_id; engineers see only their own.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := middleware.GetPrincipal(ctx)

	var (
		list []*models.Assignment
		err  error
	)
	switch {
	case access.Allowed(p, access.ListAllAssignments, ""):
		list, err = h.listFiltered(r)
	case access.Allowed(p, access.ListOwnAssignments, p.UserID):
		list, err = h.storage.Assignments().ListByEngineer(ctx, p.UserID)
	default:
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}
	if err != nil {
		jsonServiceError(w, "list assignments", err)
		return
	}

	resp, err := h.toResponses(r, list)
	if err != nil {
		jsonInternal(w, "list assignments", err)
		return
	}
	jsonOK(w, resp)
}

func (h *Handler) listFiltered(r *http.Request) ([]*models.Assignment, error) {
	ctx := r.Context()
	engineerID := r.URL.Query().Get("engineer_id")
	projectID := r.URL.Query().Get("project_id")
	if engineerID != "" {
		if _, err := uuid.Parse(engineerID); err != nil {
			return nil, staffing.InvalidReference("invalid engineer id: %q", engineerID)
		}
	}
	if projectID != "" {
		if _, err := uuid.Parse(projectID); err != nil {
			return nil, staffing.InvalidReference("invalid project id: %q", projectID)
		}
	}

	var (
		list []*models.Assignment
		err  error
	)
	switch {
	case engineerID != "":
		list, err = h.storage.Assignments().ListByEngineer(ctx, engineerID)
	case projectID != "":
		list, err = h.storage.Assignments().ListByProject(ctx, projectID)
	default:
		list, err = h.storage.Assignments().List(ctx)
	}
	if err != nil || engineerID == "" || projectID == "" {
		return list, err
	}

	filtered := list[:0]
	for _, a := range list {
		if a.ProjectID == projectID {
			filtered = append(filtered, a)
		}
	}
	return filtered, nil
}

// GetByID returns one assignment to a manager or its engineer.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := h.service.GetAssignment(ctx, chi.URLParam(r, "id"))
	if err != nil {
		jsonServiceError(w, "get assignment", err)
		return
	}

	if !access.Allowed(middleware.GetPrincipal(ctx), access.ViewAssignment, a.EngineerID) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	h.respond(w, r, http.StatusOK, a)
}

// Create creates an assignment after the capacity check.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	in := staffing.AssignmentInput{
		EngineerID: strings.TrimSpace(req.EngineerID),
		ProjectID:  strings.TrimSpace(req.ProjectID),
		Role:       models.AssignmentRole(req.Role),
	}
	if req.AllocationPercentage == nil {
		in.FieldErrors = append(in.FieldErrors, errors.New("allocation_percentage is required"))
	} else {
		in.AllocationPercentage = *req.AllocationPercentage
	}

	var err error
	if in.StartDate, err = parseDateField("start_date", req.StartDate); err != nil {
		in.FieldErrors = append(in.FieldErrors, err)
	}
	if in.EndDate, err = parseDateField("end_date", req.EndDate); err != nil {
		in.FieldErrors = append(in.FieldErrors, err)
	}

	a, err := h.service.CreateAssignment(r.Context(), in)
	if err != nil {
		jsonServiceError(w, "create assignment", err)
		return
	}

	log.Printf("assignment created: %s (engineer %s, project %s, %d%%)", a.ID, a.EngineerID, a.ProjectID, a.AllocationPercentage)
	h.respond(w, r, http.StatusCreated, a)
}

// Update applies a partial update after the capacity check.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	patch := staffing.AssignmentPatch{
		EngineerID:           req.EngineerID,
		ProjectID:            req.ProjectID,
		AllocationPercentage: req.AllocationPercentage,
	}
	for _, f := range []struct {
		name  string
		value *string
		dst   **time.Time
	}{
		{"start_date", req.StartDate, &patch.StartDate},
		{"end_date", req.EndDate, &patch.EndDate},
	} {
		if f.value == nil {
			continue
		}
		if *f.value == "" {
			patch.FieldErrors = append(patch.FieldErrors, errors.New(f.name+" must not be empty"))
			continue
		}
		d, err := parseDateField(f.name, *f.value)
		if err != nil {
			patch.FieldErrors = append(patch.FieldErrors, err)
			continue
		}
		*f.dst = &d
	}
	if req.Role != nil {
		role := models.AssignmentRole(*req.Role)
		patch.Role = &role
	}

	a, err := h.service.UpdateAssignment(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		jsonServiceError(w, "update assignment", err)
		return
	}

	log.Printf("assignment updated: %s", a.ID)
	h.respond(w, r, http.StatusOK, a)
}

// Delete removes an assignment.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteAssignment(r.Context(), id); err != nil {
		jsonServiceError(w, "delete assignment", err)
		return
	}

	log.Printf("assignment deleted: %s", id)
	jsonNoContent(w)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, a *models.Assignment) {
	resp, err := h.toResponses(r, []*models.Assignment{a})
	if err != nil {
		jsonInternal(w, "load assignment references", err)
		return
	}
	writeJSON(w, status, dataResponse{Data: resp[0]})
}

// toResponses resolves engineer and project references with one query per
// entity type.
func (h *Handler) toResponses(r *http.Request, list []*models.Assignment) ([]*AssignmentResponse, error) {
	ctx := r.Context()

	var engineerIDs, projectIDs []string
	seenEngineers := make(map[string]struct{}, len(list))
	seenProjects := make(map[string]struct{}, len(list))
	for _, a := range list {
		if _, ok := seenEngineers[a.EngineerID]; !ok {
			seenEngineers[a.EngineerID] = struct{}{}
			engineerIDs = append(engineerIDs, a.EngineerID)
		}
		if _, ok := seenProjects[a.ProjectID]; !ok {
			seenProjects[a.ProjectID] = struct{}{}
			projectIDs = append(projectIDs, a.ProjectID)
		}
	}

	engineers := make(map[string]*models.User, len(engineerIDs))
	if len(engineerIDs) > 0 {
		users, err := h.storage.Users().ListByIDs(ctx, engineerIDs)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			engineers[u.ID] = u
		}
	}

	projects := make(map[string]*models.Project, len(projectIDs))
	if len(projectIDs) > 0 {
		found, err := h.storage.Projects().ListByIDs(ctx, projectIDs)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			projects[p.ID] = p
		}
	}

	resp := make([]*AssignmentResponse, len(list))
	for i, a := range list {
		item := &AssignmentResponse{
			ID:                   a.ID,
			EngineerID:           a.EngineerID,
			ProjectID:            a.ProjectID,
			AllocationPercentage: a.AllocationPercentage,
			StartDate:            models.FormatDate(a.StartDate),
			EndDate:              models.FormatDate(a.EndDate),
			Role:                 string(a.Role),
			CreatedAt:            a.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt:            a.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if u := engineers[a.EngineerID]; u != nil {
			item.Engineer = &EngineerRef{ID: u.ID, Name: u.Name, Email: u.Email}
		}
		if p := projects[a.ProjectID]; p != nil {
			item.Project = &ProjectRef{ID: p.ID, Name: p.Name}
		}
		resp[i] = item
	}
	return resp, nil
}
