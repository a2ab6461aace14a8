package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"autograder/internal/scheduler"
	"autograder/internal/store"
)

const maxSubmissionSize = 64 << 20 // 64 MiB

// handleSubmit implements SPEC_FULL.md §4.2: capture submission_time
// before any I/O, clear-then-insert the TaskGrade row in one transaction,
// reserve scheduler capacity before enqueueing, publish
// submission.enqueued best-effort, and return 200 immediately.
func (a *API) handleSubmit(w http.ResponseWriter, r *http.Request) {
	submissionTime := time.Now()

	aid, err := intParam(r, "aid")
	if err != nil {
		badRequest(w, "invalid assignment id")
		return
	}
	tid, err := intParam(r, "tid")
	if err != nil {
		badRequest(w, "invalid task id")
		return
	}

	language := r.Header.Get("Language")
	if language == "" {
		badRequest(w, "Language header is required")
		return
	}

	userID, ok := userIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	inProgress, err := a.store.SubmissionInProgress(r.Context(), userID, tid)
	if err != nil {
		a.internalError(w, err)
		return
	}
	if inProgress {
		tooEarly(w)
		return
	}

	archive, err := io.ReadAll(io.LimitReader(r.Body, maxSubmissionSize+1))
	if err != nil {
		a.internalError(w, err)
		return
	}
	if len(archive) > maxSubmissionSize {
		badRequest(w, "submission archive too large")
		return
	}

	wasLate, err := a.store.MarkAsSubmitted(r.Context(), userID, aid, tid, submissionTime, archive)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(w)
			return
		}
		a.internalError(w, err)
		return
	}

	entry := scheduler.ContainerEntry{
		Archive:      archive,
		UserID:       userID,
		TaskID:       tid,
		AssignmentID: aid,
		WasLate:      wasLate,
		Language:     language,
	}
	if !a.dispatcher.Reserve(entry) {
		a.internalError(w, errors.New("grading queue is full"))
		return
	}

	a.events.PublishEnqueued(r.Context(), userID, tid, aid, wasLate)
	writeOK(w)
}

func (a *API) handleRetrieveScore(w http.ResponseWriter, r *http.Request) {
	tid, err := intParam(r, "tid")
	if err != nil {
		badRequest(w, "invalid task id")
		return
	}
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	result, err := a.store.GetTaskScore(r.Context(), userID, tid)
	if err != nil {
		a.internalError(w, err)
		return
	}
	if result == nil {
		notFound(w)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleDownloadMaterial(w http.ResponseWriter, r *http.Request) {
	tid, err := intParam(r, "tid")
	if err != nil {
		badRequest(w, "invalid task id")
		return
	}

	blob, filename, err := a.store.DownloadMaterial(r.Context(), tid)
	if err != nil {
		a.internalError(w, err)
		return
	}
	if blob == nil {
		notFound(w)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}
