package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"autograder/internal/auth"
)

type signupRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"user_name"`
	Email     string `json:"email"`
	Password  string `json:"pass"`
}

type loginRequest struct {
	Username string `json:"user_name"`
	Password string `json:"pass"`
}

type tokenResponse struct {
	Token string `json:"session_base"`
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	allowed, retryAfter, err := a.limiter.AllowRegister(clientIP(r))
	if err != nil {
		a.internalError(w, err)
		return
	}
	if !allowed {
		rateLimited(w, retryAfter)
		return
	}

	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}

	name, err := a.validator.SanitizeName(req.FirstName)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	lastName, err := a.validator.SanitizeName(req.LastName)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := a.validator.ValidateEmail(req.Email); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := a.validator.ValidatePassword(req.Password); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Username == "" {
		badRequest(w, "user_name is required")
		return
	}

	token, err := a.auth.SignUp(r.Context(), name, lastName, req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			writeError(w, http.StatusBadRequest, "user already exists")
			return
		}
		a.internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	allowed, retryAfter, err := a.limiter.AllowLogin(clientIP(r))
	if err != nil {
		a.internalError(w, err)
		return
	}
	if !allowed {
		rateLimited(w, retryAfter)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}

	token, err := a.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			unauthorized(w)
			return
		}
		a.internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}
