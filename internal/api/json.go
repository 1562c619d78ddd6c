package api

import (
	"encoding/json"
	"net/http"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/apperr"
)

// writeJSON encodes v as the response body with status. The teacher's
// handlers call this on every response path but never define it in the
// retrieved copy; this is the obvious implementation the call sites imply.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a {"error": msg} body at status.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppErr maps an *apperr.Error to its HTTP status and writes it; any
// other error is treated as an unclassified internal failure.
func writeAppErr(w http.ResponseWriter, err error) {
	if ae, ok := apperr.As(err); ok {
		writeError(w, ae.HTTPStatus(), ae.Message)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
