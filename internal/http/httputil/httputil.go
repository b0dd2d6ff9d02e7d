// Package httputil holds the JSON helpers shared by handlers and
// middleware.
package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Doud-FR/Wiki/internal/apperr"
)

func JSONResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func JSONError(w http.ResponseWriter, msg string, status int) {
	JSONResponse(w, map[string]string{"error": msg}, status)
}

// Message answers with {"message": msg}.
func Message(w http.ResponseWriter, msg string, status int) {
	JSONResponse(w, map[string]string{"message": msg}, status)
}

// WriteError maps err onto its status code. Infrastructure failures are
// logged and answered without detail.
func WriteError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	JSONError(w, apperr.Message(err), status)
}

// ReadJSON decodes the request body into dst, rejecting unknown fields.
func ReadJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Invalidf("invalid request body: %v", err)
	}
	return nil
}

// PathID parses the named mux path variable as a positive id.
func PathID(r *http.Request, name string) (int64, error) {
	return ParseID(mux.Vars(r)[name], name)
}

func ParseID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalidf("invalid %s %q", name, raw)
	}
	return id, nil
}

// OptionalID parses a query parameter holding an id. Empty and "null"
// mean no id.
func OptionalID(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	id, err := ParseID(raw, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func Created(w http.ResponseWriter, data interface{}) {
	JSONResponse(w, data, http.StatusCreated)
}

func OK(w http.ResponseWriter, data interface{}) {
	JSONResponse(w, data, http.StatusOK)
}

// Errorf is a shorthand for answering a fixed-status message.
func Errorf(w http.ResponseWriter, status int, format string, args ...interface{}) {
	JSONError(w, fmt.Sprintf(format, args...), status)
}
