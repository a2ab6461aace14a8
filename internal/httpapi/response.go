package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

type okBody struct {
	Message string `json:"message"`
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, okBody{Message: "OK"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

func unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "unauthorized")
}

func forbidden(w http.ResponseWriter) {
	writeError(w, http.StatusForbidden, "forbidden")
}

func badRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, message)
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}

func rateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	writeError(w, http.StatusTooManyRequests, "rate limited")
}

func tooEarly(w http.ResponseWriter) {
	writeError(w, http.StatusTooEarly, "Previous submission still in queue. Check for results later.")
}

func (a *API) internalError(w http.ResponseWriter, err error) {
	a.log.Error().Err(err).Msg("internal error")
	writeError(w, http.StatusInternalServerError, "internal error")
}
