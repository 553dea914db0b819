// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the JSON response helpers shared by the HTTP
// handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Problem is an RFC 7807 problem details body.
type Problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// RespondJSON writes v as JSON with the given status. v is marshaled before
// any header is written so an encoding failure still yields a clean 500.
func RespondJSON(w http.ResponseWriter, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

// RespondError writes a problem details body. detail is shown to the user
// as-is, so it must never carry internal diagnostics.
func RespondError(w http.ResponseWriter, status int, detail string) {
	payload, _ := json.Marshal(Problem{
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

// DecodeJSON reads at most limit bytes from r's body into v. Unknown fields
// are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	body := http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes: %w", maxErr.Limit, err)
		}
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}
