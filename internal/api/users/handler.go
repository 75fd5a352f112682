package users

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/good-yellow-bee/staffplan/internal/api/auth"
	"github.com/good-yellow-bee/staffplan/internal/api/middleware"
	"github.com/good-yellow-bee/staffplan/internal/models"
	"github.com/good-yellow-bee/staffplan/internal/storage"
)

// Response helpers (local to avoid import cycle)

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
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeValidation       = "VALIDATION_ERROR"
	errCodeInvalidReference = "INVALID_REFERENCE"
	errCodeUnauthorized     = "UNAUTHORIZED"
	errCodeNotFound         = "NOT_FOUND"
	errCodeConflict         = "CONFLICT"
	errCodeInternalError    = "INTERNAL_ERROR"
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}})
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(dataResponse{Data: data})
}

func jsonCreated(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(dataResponse{Data: data})
}

func jsonNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func jsonInternal(w http.ResponseWriter, op string, err error) {
	log.Printf("%s error: %v", op, err)
	jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
}

// Invalidator drops cached copies of a user after it changes.
type Invalidator interface {
	Invalidate(id string)
}

// UserResponse is a user without sensitive fields.
type UserResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Department  string   `json:"department"`
	Skills      []string `json:"skills"`
	Seniority   string   `json:"seniority,omitempty"`
	MaxCapacity int      `json:"max_capacity,omitempty"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// Handler handles profile and user management endpoints.
type Handler struct {
	storage storage.Storage
	cache   Invalidator
}

// NewHandler creates a new user handler. cache may be nil.
func NewHandler(store storage.Storage, cache Invalidator) *Handler {
	return &Handler{storage: store, cache: cache}
}

// CreateRequest is the request body for creating a user.
type CreateRequest struct {
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Password    string   `json:"password"`
	Role        string   `json:"role"`
	Department  string   `json:"department"`
	Skills      []string `json:"skills"`
	Seniority   string   `json:"seniority"`
	MaxCapacity int      `json:"max_capacity"`
}

// ChangePasswordRequest is the request body for changing password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Profile returns the authenticated user.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		jsonError(w, http.StatusUnauthorized, errCodeUnauthorized, "authentication required")
		return
	}
	jsonOK(w, userToResponse(user))
}

// List returns all users, optionally filtered by ?role=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		list []*models.User
		err  error
	)
	if raw := r.URL.Query().Get("role"); raw != "" {
		role, verr := ValidateRole(raw)
		if verr != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidation, verr.Error())
			return
		}
		list, err = h.storage.Users().ListByRole(ctx, role)
	} else {
		list, err = h.storage.Users().List(ctx)
	}
	if err != nil {
		jsonInternal(w, "list users", err)
		return
	}

	resp := make([]*UserResponse, len(list))
	for i, u := range list {
		resp[i] = userToResponse(u)
	}
	jsonOK(w, resp)
}

// Create creates an engineer or a manager.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if err := ValidateEmail(req.Email); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidation, err.Error())
		return
	}
	if err := auth.ValidatePasswordOrError(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidation, err.Error())
		return
	}
	role, err := ValidateRole(req.Role)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidation, err.Error())
		return
	}
	seniority, err := ValidateSeniority(req.Seniority)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidation, err.Error())
		return
	}

	user := models.NewUser(strings.ToLower(strings.TrimSpace(req.Email)), strings.TrimSpace(req.Name), role)
	user.ID = uuid.New().String()
	user.Department = strings.TrimSpace(req.Department)
	user.Skills = models.UniqueStrings(req.Skills)
	user.Seniority = seniority
	user.MaxCapacity = req.MaxCapacity
	if err := user.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidation, err.Error())
		return
	}

	ctx := r.Context()

	existing, err := h.storage.Users().GetByEmail(ctx, user.Email)
	if err != nil {
		jsonInternal(w, "create user: check email", err)
		return
	}
	if existing != nil {
		jsonError(w, http.StatusConflict, errCodeConflict, "email already exists")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		jsonInternal(w, "create user: hash password", err)
		return
	}
	user.PasswordHash = hash

	if err := h.storage.Users().Create(ctx, user); err != nil {
		jsonInternal(w, "create user", err)
		return
	}

	log.Printf("user created: %s (%s, %s)", user.Email, user.Role, user.ID)

	jsonCreated(w, userToResponse(user))
}

// Delete deletes a user. Managers cannot delete themselves.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "user id required")
		return
	}
	if _, err := uuid.Parse(userID); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeInvalidReference, "invalid user id")
		return
	}

	ctx := r.Context()
	if userID == middleware.GetUserID(ctx) {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "cannot delete own account")
		return
	}

	user, err := h.storage.Users().GetByID(ctx, userID)
	if err != nil {
		jsonInternal(w, "delete user: get user", err)
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "user not found")
		return
	}

	if err := h.storage.Users().Delete(ctx, userID); err != nil {
		jsonInternal(w, "delete user", err)
		return
	}
	if err := h.storage.Tokens().RevokeAllForUser(ctx, userID); err != nil {
		log.Printf("delete user warning: revoke tokens: %v", err)
	}
	h.invalidate(userID)

	log.Printf("user deleted: %s (%s)", user.Email, user.ID)

	jsonNoContent(w)
}

// ChangePassword changes the current user's password and revokes every
// refresh token the user holds.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if req.CurrentPassword == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidation, "current_password is required")
		return
	}
	if err := auth.ValidatePasswordOrError(req.NewPassword); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidation, err.Error())
		return
	}

	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	// Reload so the hash is current even when the context user came from cache.
	user, err := h.storage.Users().GetByID(ctx, userID)
	if err != nil {
		jsonInternal(w, "change password: get user", err)
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "user not found")
		return
	}

	if !auth.VerifyPassword(user.PasswordHash, req.CurrentPassword) {
		jsonError(w, http.StatusBadRequest, errCodeValidation, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		jsonInternal(w, "change password: hash password", err)
		return
	}

	user.PasswordHash = hash
	user.UpdatedAt = time.Now()

	if err := h.storage.Users().Update(ctx, user); err != nil {
		jsonInternal(w, "change password", err)
		return
	}
	h.invalidate(user.ID)

	if err := h.storage.Tokens().RevokeAllForUser(ctx, userID); err != nil {
		// The password is already changed; outstanding tokens expire on their own.
		log.Printf("change password warning: revoke tokens: %v", err)
	}

	log.Printf("password changed: user %s", user.Email)

	jsonNoContent(w)
}

func (h *Handler) invalidate(id string) {
	if h.cache != nil {
		h.cache.Invalidate(id)
	}
}

// userToResponse converts a User to UserResponse.
func userToResponse(u *models.User) *UserResponse {
	skills := u.Skills
	if skills == nil {
		skills = []string{}
	}
	return &UserResponse{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        string(u.Role),
		Department:  u.Department,
		Skills:      skills,
		Seniority:   string(u.Seniority),
		MaxCapacity: u.MaxCapacity,
		CreatedAt:   u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   u.UpdatedAt.Format(time.RFC3339),
	}
}
