package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sonderhq/account-api/internal/ctxkeys"
	"github.com/sonderhq/account-api/internal/model"
	"github.com/sonderhq/account-api/internal/repository"
	"github.com/sonderhq/account-api/internal/service"
	"github.com/sonderhq/account-api/internal/validation"
)

// AccountHandler serves the account management API. Every response is HTTP
// 200; the success flag (or, for validation failures, the bare field-error
// map) is the machine-readable outcome. Existing clients depend on this
// convention, so it is kept even where a status code would be cleaner.
type AccountHandler struct {
	authService *service.AuthService
	userService *service.UserService
}

func NewAccountHandler(authService *service.AuthService, userService *service.UserService) *AccountHandler {
	return &AccountHandler{
		authService: authService,
		userService: userService,
	}
}

type registerRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateProfileRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type tokenResponse struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type registerResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

type dataResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    *model.User `json:"data"`
}

// Register creates a new user account.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	errs := validation.Errors{}
	if err := validation.ValidateName(req.Name); err != nil {
		errs.Add("name", err.Error())
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		errs.Add("email", err.Error())
	} else if _, err := h.userService.ByEmail(req.Email); err == nil {
		errs.Add("email", validation.ErrEmailTaken.Error())
	}
	if err := validation.ValidatePasswordConfirmed(req.Password, req.PasswordConfirmation); err != nil {
		errs.Add("password", err.Error())
	}
	if errs.Any() {
		respondJSON(w, errs)
		return
	}

	user, err := h.userService.Register(req.Name, req.Email, req.Password)
	if err != nil {
		// The pre-check above races with concurrent registrations; the
		// unique constraint is the authority.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			errs.Add("email", validation.ErrEmailTaken.Error())
			respondJSON(w, errs)
			return
		}
		slog.Error("registration failed", "error", err, "email", req.Email)
		respondJSON(w, statusResponse{Success: false, Message: err.Error()})
		return
	}

	respondJSON(w, registerResponse{
		Message: "User inserted successfully!",
		User:    user,
	})
}

// Login verifies credentials and issues a bearer token.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Email = strings.TrimSpace(req.Email)

	errs := validation.Errors{}
	if err := validation.ValidateEmail(req.Email); err != nil {
		errs.Add("email", err.Error())
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		errs.Add("password", err.Error())
	}
	if errs.Any() {
		respondJSON(w, errs)
		return
	}

	user, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondJSON(w, statusResponse{Success: false, Message: "Email or password incorrect!"})
			return
		}
		slog.Error("login failed", "error", err, "email", req.Email)
		respondJSON(w, statusResponse{Success: false, Message: err.Error()})
		return
	}

	h.respondWithToken(w, user)
}

// Logout revokes the presented bearer token.
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	if user == nil {
		respondNotAuthenticated(w)
		return
	}

	err := h.authService.RevokeJWT(ctxkeys.Claims(r.Context()))
	if err != nil {
		slog.Error("logout failed", "error", err, "user_id", user.ID)
		respondJSON(w, statusResponse{Success: false, Message: err.Error()})
		return
	}

	respondJSON(w, statusResponse{Success: true, Message: "User logged out!"})
}

// Profile returns the authenticated caller's record.
func (h *AccountHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	if user == nil {
		respondNotAuthenticated(w)
		return
	}

	respondJSON(w, dataResponse{Success: true, Data: user})
}

// UpdateProfile overwrites name and email of the user with the submitted
// id. The target id is not required to be the caller's own, and the email
// is not re-checked for uniqueness; both match the observed behavior of the
// API this replaces and are deliberate compatibility choices.
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	if user == nil {
		respondNotAuthenticated(w)
		return
	}

	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	errs := validation.Errors{}
	if req.ID == "" {
		errs.Add("id", "The id field is required.")
	}
	if err := validation.ValidateNameLoose(req.Name); err != nil {
		errs.Add("name", err.Error())
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		errs.Add("email", err.Error())
	}
	if errs.Any() {
		respondJSON(w, errs)
		return
	}

	updated, err := h.userService.UpdateProfile(req.ID, req.Name, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			respondJSON(w, statusResponse{Success: false, Message: "User not found!"})
			return
		}
		slog.Error("profile update failed", "error", err, "target_id", req.ID, "caller_id", user.ID)
		respondJSON(w, statusResponse{Success: false, Message: err.Error()})
		return
	}

	respondJSON(w, dataResponse{Success: true, Message: "Updated user successfully!", Data: updated})
}

// SendVerifyMail mails a verification link to the user with the given
// address and stores the embedded token on their record.
func (h *AccountHandler) SendVerifyMail(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	if user == nil {
		respondNotAuthenticated(w)
		return
	}

	email := r.PathValue("email")

	err := h.userService.SendVerificationMail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			respondJSON(w, statusResponse{Success: false, Message: "User not found!"})
			return
		}
		slog.Error("verification mail failed", "error", err, "email", email)
		respondJSON(w, statusResponse{Success: false, Message: err.Error()})
		return
	}

	respondJSON(w, statusResponse{Success: true, Message: "Mail sent successfully."})
}

// VerifyMail consumes an emailed verification token. This endpoint is
// opened from a mail client, so it answers with HTML rather than JSON.
func (h *AccountHandler) VerifyMail(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	_, err := h.userService.VerifyEmail(token)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			slog.Error("email verification failed", "error", err)
		}
		respondHTML(w, "<h1>404</h1><p>Page not found.</p>")
		return
	}

	respondHTML(w, "<h1>Email verified successfully</h1>")
}

// RefreshToken retires the presented bearer token and issues a new one.
func (h *AccountHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	if user == nil {
		respondNotAuthenticated(w)
		return
	}

	token, err := h.authService.RefreshJWT(ctxkeys.Claims(r.Context()), user)
	if err != nil {
		slog.Error("token refresh failed", "error", err, "user_id", user.ID)
		respondJSON(w, statusResponse{Success: false, Message: err.Error()})
		return
	}

	respondJSON(w, tokenResponse{
		Success:     true,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   h.authService.TTLSeconds(),
	})
}

func (h *AccountHandler) respondWithToken(w http.ResponseWriter, user *model.User) {
	token, err := h.authService.IssueJWT(user)
	if err != nil {
		slog.Error("failed to issue token", "error", err, "user_id", user.ID)
		respondJSON(w, statusResponse{Success: false, Message: err.Error()})
		return
	}

	respondJSON(w, tokenResponse{
		Success:     true,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   h.authService.TTLSeconds(),
	})
}

func respondNotAuthenticated(w http.ResponseWriter) {
	respondJSON(w, statusResponse{Success: false, Message: "User is not Authenticated."})
}

func respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// decodeJSON reads the request body; a malformed body is reported in the
// uniform failure shape.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		respondJSON(w, statusResponse{Success: false, Message: "Invalid request body."})
		return false
	}
	return true
}
