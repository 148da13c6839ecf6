package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"
)

const headerRequestID = "X-Request-Id"

type errorBody struct {
	Error        string `json:"error"`
	Message      string `json:"message"`
	RetryAfterMs int64  `json:"retryAfterMs,omitempty"`
	PenaltyLevel int    `json:"penaltyLevel,omitempty"`
	RequestID    string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func formatInt(v int) string { return strconv.Itoa(v) }
