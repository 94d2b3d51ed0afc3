package controllers

import (
	"net/http"
	"shopease/models"
	"shopease/services"
	"shopease/utils"

	"go.uber.org/zap"
)

// UserController handles user-related requests
type UserController struct {
	Accounts *services.AccountService
	Timeouts utils.Timeouts
	Log      *zap.Logger
}

// NewUserController creates a new UserController
func NewUserController(accounts *services.AccountService, timeouts utils.Timeouts, log *zap.Logger) *UserController {
	return &UserController{Accounts: accounts, Timeouts: timeouts.WithDefaults(), Log: log}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Photo    string `json:"photo"`
}

// Register handles user registration
func (uc *UserController) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	// Decode the request body into the sign-up request
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid input")
		return
	}

	ctx, cancel := utils.WithTimeout(r.Context(), uc.Timeouts.Short, uc.Log, "register")
	defer cancel()
	user, inserted, err := uc.Accounts.Register(ctx, services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Photo:    req.Photo,
	})
	if err != nil {
		writeError(w, r, uc.Log, err)
		return
	}
	if !inserted {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"inserted":   false,
			"message":    "user already exists",
			"insertedId": nil,
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"inserted":   true,
		"message":    "user registered",
		"insertedId": user.ID,
	})
}

// Login handles user authentication
func (uc *UserController) Login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &creds); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid input")
		return
	}

	ctx, cancel := utils.WithTimeout(r.Context(), uc.Timeouts.Short, uc.Log, "login")
	defer cancel()
	token, user, err := uc.Accounts.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		writeError(w, r, uc.Log, err)
		return
	}

	// Return the token
	writeJSON(w, http.StatusOK, struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}{token, user})
}

// GetRole returns the stored role of the caller (or of any user, for admins)
func (uc *UserController) GetRole(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := utils.WithTimeout(r.Context(), uc.Timeouts.Short, uc.Log, "get_role")
	defer cancel()
	role, err := uc.Accounts.Role(ctx, r.URL.Query().Get("email"), actor(r))
	if err != nil {
		writeError(w, r, uc.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"role": role})
}

// ListUsers returns every account (admin)
func (uc *UserController) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := utils.WithTimeout(r.Context(), uc.Timeouts.Medium, uc.Log, "list_users")
	defer cancel()
	users, err := uc.Accounts.ListUsers(ctx)
	if err != nil {
		writeError(w, r, uc.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
