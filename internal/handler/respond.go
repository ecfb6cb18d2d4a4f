package handler

import (
	"encoding/json"
	"net/http"
	"time"
)

type errorBody struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, errType, message string) {
	respondJSON(w, status, errorResponse{Error: errorBody{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}})
}
