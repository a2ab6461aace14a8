package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"autograder/internal/store"
)

type addAssignmentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (a *API) handleAddAssignment(w http.ResponseWriter, r *http.Request) {
	class := classParam(r)
	var req addAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if req.Name == "" {
		badRequest(w, "name is required")
		return
	}
	if err := a.store.AddAssignment(r.Context(), class, req.Name, req.Description); err != nil {
		a.internalError(w, err)
		return
	}
	writeOK(w)
}

type updateAssignmentRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Deadline    time.Time `json:"deadline"`
}

func (a *API) handleUpdateAssignment(w http.ResponseWriter, r *http.Request) {
	aid, err := intParam(r, "aid")
	if err != nil {
		badRequest(w, "invalid assignment id")
		return
	}

	var req updateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}

	if err := a.store.UpdateAssignment(r.Context(), aid, req.Name, req.Description, req.Deadline); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(w)
			return
		}
		a.internalError(w, err)
		return
	}
	writeOK(w)
}

func (a *API) handleRetrieveScores(w http.ResponseWriter, r *http.Request) {
	aid, err := intParam(r, "aid")
	if err != nil {
		badRequest(w, "invalid assignment id")
		return
	}
	grades, err := a.store.GetAssignmentScores(r.Context(), aid)
	if err != nil {
		a.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grades)
}

func (a *API) handleRetrieveFullAssignment(w http.ResponseWriter, r *http.Request) {
	aid, err := intParam(r, "aid")
	if err != nil {
		badRequest(w, "invalid assignment id")
		return
	}
	assignment, err := a.store.GetAssignmentInfo(r.Context(), aid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(w)
			return
		}
		a.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assignment)
}

func (a *API) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	class := classParam(r)
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	assignments, err := a.store.GetAssignmentsForClass(r.Context(), class, userID)
	if err != nil {
		a.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assignments)
}

func (a *API) handleDownloadSubmission(w http.ResponseWriter, r *http.Request) {
	aid, err := intParam(r, "aid")
	if err != nil {
		badRequest(w, "invalid assignment id")
		return
	}
	username := chiParam(r, "username")

	bundle, err := a.store.DownloadSubmission(r.Context(), username, aid, a.cfg.Sandbox.DownloadRoot)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(w)
			return
		}
		a.internalError(w, err)
		return
	}
	if bundle == nil {
		notFound(w)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%d.zip"`, username, aid))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(bundle)
}
