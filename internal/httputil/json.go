package httputil

import (
	"encoding/json"
	"net/http"
)

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Fail writes the failure envelope with a caller-safe message.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]any{
		"success": false,
		"message": message,
	})
}

// FailWithErrors writes the failure envelope including the full list of
// violated rules so the caller can report everything at once.
func FailWithErrors(w http.ResponseWriter, status int, message string, errs []string) {
	JSON(w, status, map[string]any{
		"success": false,
		"message": message,
		"errors":  errs,
	})
}
