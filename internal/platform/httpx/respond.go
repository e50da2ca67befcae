// Package httpx writes the JSON bodies of the worker's ops endpoints.
// Failures use RFC7807 problem details.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ProblemTypeQueueUnavailable marks a health probe whose queue could not be inspected.
const ProblemTypeQueueUnavailable = "urn:ledger:problem:queue-unavailable"

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, "application/json", status, data)
}

// Problem answers r with a problem document. An empty problemType renders
// as about:blank per RFC7807.
func Problem(w http.ResponseWriter, r *http.Request, status int, problemType, detail string) {
	p := ProblemDetail{
		Type:   problemType,
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
	if r != nil && r.URL != nil {
		p.Instance = r.URL.Path
	}
	write(w, "application/problem+json", status, p)
}

func write(w http.ResponseWriter, contentType string, status int, body any) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
