package httpapi

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"autograder/internal/store"
)

type createClassRequest struct {
	ClassNumber        string `json:"class_number"`
	Description        string `json:"description"`
	InstructorUsername string `json:"instructor_user_name"`
}

func (a *API) handleCreateClass(w http.ResponseWriter, r *http.Request) {
	var req createClassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if req.ClassNumber == "" || req.InstructorUsername == "" {
		badRequest(w, "class_number and instructor_user_name are required")
		return
	}

	if err := a.store.NewClass(r.Context(), req.ClassNumber, req.Description, req.InstructorUsername); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(w)
			return
		}
		a.internalError(w, err)
		return
	}

	a.events.PublishClassCreated(r.Context(), req.ClassNumber, req.InstructorUsername)
	writeOK(w)
}

type usernameRequest struct {
	Username string `json:"user_name"`
}

func (a *API) handleAddInstructor(w http.ResponseWriter, r *http.Request) {
	class := classParam(r)
	var req usernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if err := a.store.AddInstructor(r.Context(), class, req.Username); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(w)
			return
		}
		a.internalError(w, err)
		return
	}
	writeOK(w)
}

func (a *API) handleAddStudent(w http.ResponseWriter, r *http.Request) {
	class := classParam(r)
	var req usernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if err := a.store.AddStudent(r.Context(), class, req.Username); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(w)
			return
		}
		a.internalError(w, err)
		return
	}
	writeOK(w)
}

func (a *API) handleGetClasses(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	classes, err := a.store.GetClasses(r.Context(), userID)
	if err != nil {
		a.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, classes)
}

func (a *API) handleListAllStudents(w http.ResponseWriter, r *http.Request) {
	exclude := r.URL.Query().Get("exclude_class")
	students, err := a.store.ListAllStudents(r.Context(), exclude)
	if err != nil {
		a.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}

type joinCodeResponse struct {
	JoinCode string `json:"join_code"`
}

func (a *API) handleGenerateJoinCode(w http.ResponseWriter, r *http.Request) {
	class := classParam(r)
	code, err := randomJoinCode()
	if err != nil {
		a.internalError(w, err)
		return
	}
	if err := a.store.AddJoinCode(r.Context(), code, class); err != nil {
		a.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joinCodeResponse{JoinCode: code})
}

func randomJoinCode() (string, error) {
	raw := make([]byte, 9)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

type joinClassRequest struct {
	JoinCode string `json:"join_code"`
}

func (a *API) handleJoinClass(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	var req joinClassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}

	class, joined, err := a.store.JoinClass(r.Context(), userID, req.JoinCode)
	if err != nil {
		a.internalError(w, err)
		return
	}
	if !joined {
		badRequest(w, "join code invalid or expired")
		return
	}

	a.events.PublishClassJoined(r.Context(), userID, class)
	writeOK(w)
}
