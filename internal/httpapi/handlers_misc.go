package httpapi

import (
	"net/http"
	"os"
)

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// handleHealthz reports DB reachability per SPEC_FULL.md §4.9. Scheduler
// liveness is implicit: the dispatcher goroutine is started once at boot
// and never exits except on process shutdown, so there is nothing further
// to probe here.
func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	status := http.StatusOK
	if err := a.store.Ping(r.Context()); err != nil {
		dbStatus = "unreachable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Status: "ok", Database: dbStatus})
}

func (a *API) handleGetSupportedLanguages(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(a.cfg.Sandbox.DockerfilesDir)
	if err != nil {
		a.internalError(w, err)
		return
	}

	languages := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			languages = append(languages, e.Name())
		}
	}
	writeJSON(w, http.StatusOK, languages)
}
