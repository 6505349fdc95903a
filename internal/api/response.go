package api

import (
	"encoding/json"
	"log"
	"net/http"
)

// Response is a standard API response wrapper.
type Response struct {
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// JSONError writes a JSON error response.
func JSONError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)

	if encErr := json.NewEncoder(w).Encode(Response{Error: err}); encErr != nil {
		log.Printf("json encode error: %v", encErr)
	}
}
