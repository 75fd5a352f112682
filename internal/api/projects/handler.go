// Package projects provides project management and skill gap endpoints.
package projects

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

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
	Code    string `json:"code"`
	Message string `json:"message"`
}

type dataResponse struct {
	Data any `json:"data"`
}

// Error codes
const (
	errCodeBadRequest    = "BAD_REQUEST"
	errCodeValidation    = string(staffing.KindValidation)
	errCodeInternalError = "INTERNAL_ERROR"
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonOK(w http.ResponseWriter, data any) {
	jsonStatus(w, http.StatusOK, data)
}

func jsonCreated(w http.ResponseWriter, data any) {
	jsonStatus(w, http.StatusCreated, data)
}

func jsonStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(dataResponse{Data: data}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func jsonInternal(w http.ResponseWriter, op string, err error) {
	log.Printf("%s error: %v", op, err)
	jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
}

// jsonServiceError maps an engine error onto the HTTP envelope.
func jsonServiceError(w http.ResponseWriter, op string, err error) {
	var e *staffing.Error
	if !errors.As(err, &e) || e.Kind == staffing.KindStoreFailure {
		jsonInternal(w, op, err)
		return
	}
	switch e.Kind {
	case staffing.KindNotFound:
		jsonError(w, http.StatusNotFound, string(e.Kind), e.Message)
	case staffing.KindForbidden:
		jsonError(w, http.StatusForbidden, string(e.Kind), e.Message)
	case staffing.KindUnauthorized:
		jsonError(w, http.StatusUnauthorized, string(e.Kind), e.Message)
	default:
		jsonError(w, http.StatusBadRequest, string(e.Kind), e.Message)
	}
}

// ManagerSummary identifies the manager owning a project.
type ManagerSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ProjectResponse is the API shape of a project. Dates are YYYY-MM-DD.
type ProjectResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	StartDate      string          `json:"start_date"`
	EndDate        string          `json:"end_date"`
	RequiredSkills []string        `json:"required_skills"`
	TeamSize       int             `json:"team_size"`
	Status         string          `json:"status"`
	ManagerID      string          `json:"manager_id"`
	Manager        *ManagerSummary `json:"manager,omitempty"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
}

func projectToResponse(p *models.Project, manager *models.User) *ProjectResponse {
	skills := p.RequiredSkills
	if skills == nil {
		skills = []string{}
	}
	resp := &ProjectResponse{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		StartDate:      models.FormatDate(p.StartDate),
		EndDate:        models.FormatDate(p.EndDate),
		RequiredSkills: skills,
		TeamSize:       p.TeamSize,
		Status:         string(p.Status),
		ManagerID:      p.ManagerID,
		CreatedAt:      p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      p.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if manager != nil {
		resp.Manager = &ManagerSummary{ID: manager.ID, Name: manager.Name, Email: manager.Email}
	}
	return resp
}

// Handler handles project endpoints.
type Handler struct {
	storage storage.Storage
	service *staffing.Service
}

// NewHandler creates a new project handler.
func NewHandler(service *staffing.Service) *Handler {
	return &Handler{storage: service.Store(), service: service}
}

// CreateRequest is the request body for creating a project.
type CreateRequest struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	RequiredSkills []string `json:"required_skills"`
	TeamSize       int      `json:"team_size"`
	Status         string   `json:"status"`
}

// UpdateRequest is the request body for updating a project. Absent fields
// keep their value.
type UpdateRequest struct {
	Name           *string   `json:"name"`
	Description    *string   `json:"description"`
	StartDate      *string   `json:"start_date"`
	EndDate        *string   `json:"end_date"`
	RequiredSkills *[]string `json:"required_skills"`
	TeamSize       *int      `json:"team_size"`
	Status         *string   `json:"status"`
}

// List returns all projects ordered by start date. The optional status
// query parameter filters by lifecycle state.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var status models.ProjectStatus
	if s := r.URL.Query().Get("status"); s != "" {
		parsed, err := parseStatus(s)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidation, err.Error())
			return
		}
		status = parsed
	}

	projects, err := h.storage.Projects().List(ctx)
	if err != nil {
		jsonInternal(w, "list projects", err)
		return
	}

	managers, err := h.managersFor(r, projects)
	if err != nil {
		jsonInternal(w, "list projects", err)
		return
	}

	resp := make([]*ProjectResponse, 0, len(projects))
	for _, p := range projects {
		if status != "" && p.Status != status {
			continue
		}
		resp = append(resp, projectToResponse(p, managers[p.ManagerID]))
	}
	jsonOK(w, resp)
}

// managersFor loads the managers of projects in one query.
func (h *Handler) managersFor(r *http.Request, projects []*models.Project) (map[string]*models.User, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, p := range projects {
		if _, ok := seen[p.ManagerID]; ok {
			continue
		}
		if _, err := uuid.Parse(p.ManagerID); err != nil {
			continue
		}
		seen[p.ManagerID] = struct{}{}
		ids = append(ids, p.ManagerID)
	}

	users, err := h.storage.Users().ListByIDs(r.Context(), ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

// Create creates a project owned by the calling manager.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	start, err := parseDateField("start_date", req.StartDate)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidation, err.Error())
		return
	}
	end, err := parseDateField("end_date", req.EndDate)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidation, err.Error())
		return
	}
	status, err := parseStatus(req.Status)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidation, err.Error())
		return
	}

	ctx := r.Context()
	manager := middleware.GetUser(ctx)

	project := models.NewProject(strings.TrimSpace(req.Name), strings.TrimSpace(req.Description), middleware.GetUserID(ctx))
	project.ID = uuid.New().String()
	project.StartDate = start
	project.EndDate = end
	project.RequiredSkills = models.UniqueStrings(req.RequiredSkills)
	project.TeamSize = req.TeamSize
	project.Status = status

	if err := project.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidation, err.Error())
		return
	}

	if err := h.storage.Projects().Create(ctx, project); err != nil {
		jsonInternal(w, "create project", err)
		return
	}

	log.Printf("project created: %s (%s)", project.Name, project.ID)
	jsonCreated(w, projectToResponse(project, manager))
}

// GetByID returns a project by ID.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	project, err := h.service.Project(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		jsonServiceError(w, "get project", err)
		return
	}

	manager, err := h.storage.Users().GetByID(r.Context(), project.ManagerID)
	if err != nil {
		jsonInternal(w, "get project", err)
		return
	}

	jsonOK(w, projectToResponse(project, manager))
}

// Update applies a partial update to a project.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	project, err := h.service.Project(ctx, chi.URLParam(r, "id"))
	if err != nil {
		jsonServiceError(w, "update project", err)
		return
	}

	if err := applyUpdate(project, &req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidation, err.Error())
		return
	}
	if err := project.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidation, err.Error())
		return
	}

	project.UpdatedAt = time.Now()
	if err := h.storage.Projects().Update(ctx, project); err != nil {
		jsonInternal(w, "update project", err)
		return
	}

	updated, err := h.storage.Projects().GetByID(ctx, project.ID)
	if err != nil || updated == nil {
		jsonInternal(w, "update project: reread", err)
		return
	}
	manager, err := h.storage.Users().GetByID(ctx, updated.ManagerID)
	if err != nil {
		jsonInternal(w, "update project", err)
		return
	}

	log.Printf("project updated: %s (%s)", updated.Name, updated.ID)
	jsonOK(w, projectToResponse(updated, manager))
}

func applyUpdate(p *models.Project, req *UpdateRequest) error {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	if req.StartDate != nil {
		d, err := parseDateField("start_date", *req.StartDate)
		if err != nil {
			return err
		}
		p.StartDate = d
	}
	if req.EndDate != nil {
		d, err := parseDateField("end_date", *req.EndDate)
		if err != nil {
			return err
		}
		p.EndDate = d
	}
	if req.RequiredSkills != nil {
		p.RequiredSkills = models.UniqueStrings(*req.RequiredSkills)
	}
	if req.TeamSize != nil {
		p.TeamSize = *req.TeamSize
	}
	if req.Status != nil {
		if *req.Status == "" {
			return errors.New("status must not be empty")
		}
		s, err := parseStatus(*req.Status)
		if err != nil {
			return err
		}
		p.Status = s
	}
	return nil
}

// Delete deletes a project. Its assignments are left in place.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	project, err := h.service.Project(ctx, chi.URLParam(r, "id"))
	if err != nil {
		jsonServiceError(w, "delete project", err)
		return
	}

	if err := h.storage.Projects().Delete(ctx, project.ID); err != nil {
		jsonInternal(w, "delete project", err)
		return
	}

	log.Printf("project deleted: %s (%s)", project.Name, project.ID)
	jsonNoContent(w)
}

// SkillGap reports which required skills no assigned engineer has.
func (h *Handler) SkillGap(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.SkillGap(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		jsonServiceError(w, "project skill gap", err)
		return
	}
	jsonOK(w, report)
}
