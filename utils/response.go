package utils

import (
	"encoding/json"
	"net/http"
)

type M map[string]any

// RespondWithError writes the uniform {success:false, message} envelope.
func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, M{"success": false, "message": msg})
}

// RespondWithSuccess merges data into a {success:true} envelope.
func RespondWithSuccess(w http.ResponseWriter, code int, data M) {
	body := M{"success": true}
	for k, v := range data {
		body[k] = v
	}
	RespondWithJSON(w, code, body)
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
