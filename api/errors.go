package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vocdoni/votegraph/log"
)

// Error is the typed API error every handler returns instead of a bare
// error: a stable numeric Code for API consumers plus the HTTPstatus and
// underlying Err to report. Write serializes it straight to the response.
type Error struct {
	Code       int
	HTTPstatus int
	Err        error
}

func (e Error) Error() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Err)
}

// WithErr returns a copy of e with Err replaced, preserving Code/HTTPstatus.
func (e Error) WithErr(err error) Error {
	e.Err = err
	return e
}

// Withf returns a copy of e with Err replaced by a formatted error.
func (e Error) Withf(format string, args ...any) Error {
	e.Err = fmt.Errorf(format, args...)
	return e
}

// errorResponse is the JSON body an Error writes to the client.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Write serializes e as a JSON error body with the configured HTTP status.
func (e Error) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPstatus)
	if err := json.NewEncoder(w).Encode(errorResponse{Code: e.Code, Message: e.Err.Error()}); err != nil {
		log.Warnw("failed to write api error response", "err", err.Error())
	}
}
