package handlers

import (
	"net/http"

	"noteface-service/logging"

	"github.com/goccy/go-json"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// failer answers not-found and internal errors on browser-facing routes,
// sending the client to the error page when one is configured
type failer struct {
	errorURL string
}

func (f failer) notFound(w http.ResponseWriter, r *http.Request) {
	if f.errorURL != "" {
		http.Redirect(w, r, f.errorURL, http.StatusFound)
		return
	}
	writeError(w, http.StatusNotFound, "Not found")
}

func (f failer) internal(w http.ResponseWriter, r *http.Request, err error) {
	logging.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	if f.errorURL != "" {
		http.Redirect(w, r, f.errorURL, http.StatusFound)
		return
	}
	writeError(w, http.StatusInternalServerError, "Internal server error")
}
