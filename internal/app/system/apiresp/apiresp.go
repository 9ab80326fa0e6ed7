// internal/app/system/apiresp/apiresp.go
//
// Package apiresp writes the JSON envelope every API endpoint returns and
// maps governance errors onto HTTP statuses.
package apiresp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/commonshub/internal/app/system/auth"
	"github.com/dalemusser/commonshub/internal/domain/wferr"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MaxBodyBytes bounds request bodies read by Decode.
const MaxBodyBytes = 1 << 20

// Body is the response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody carries the error kind, its stable message key and a readable message.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSON writes v as the data of a successful envelope.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	write(w, status, Body{Success: status >= 200 && status < 300, Data: v})
}

func OK(w http.ResponseWriter, v interface{})      { JSON(w, http.StatusOK, v) }
func Created(w http.ResponseWriter, v interface{}) { JSON(w, http.StatusCreated, v) }

// NoContent acknowledges an action that has no payload.
func NoContent(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) }

func write(w http.ResponseWriter, status int, body Body) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Fail writes an error envelope that does not come from a governance error,
// such as a rate-limit rejection.
func Fail(w http.ResponseWriter, status int, kind, code, message string) {
	write(w, status, Body{Error: &ErrorBody{Kind: kind, Code: code, Message: message}})
}

// Status maps a governance error kind to an HTTP status.
func Status(kind wferr.Kind, authenticated bool) int {
	switch {
	case kind == wferr.KindValidation:
		return http.StatusBadRequest
	case kind == wferr.KindUnauthorized && !authenticated:
		return http.StatusUnauthorized
	case kind == wferr.KindUnauthorized:
		return http.StatusForbidden
	case kind == wferr.KindNotFound:
		return http.StatusNotFound
	case kind == wferr.KindInvalidState, kind.Conflict():
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Error writes err. Governance errors keep their key and message; anything
// else is logged and reported as a generic internal error.
func Error(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	e, ok := wferr.As(err)
	if !ok {
		if log != nil {
			log.Error("request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(err))
		}
		write(w, http.StatusInternalServerError, Body{Error: &ErrorBody{
			Kind:    "internal",
			Code:    "server.internal",
			Message: "internal server error",
		}})
		return
	}
	u, signedIn := auth.CurrentUser(r)
	authenticated := signedIn && u.ID != ""
	write(w, Status(e.Kind, authenticated), Body{Error: &ErrorBody{
		Kind:    string(e.Kind),
		Code:    e.Key,
		Message: e.Message,
	}})
}

// Decode reads a JSON body into v. An empty body leaves v untouched.
func Decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return wferr.Validation("request.too_large", "request body too large")
		}
		return wferr.Validation("request.malformed", "malformed JSON body")
	}
	return nil
}

// PathID parses the chi URL parameter name as an ObjectID.
func PathID(r *http.Request, name string) (primitive.ObjectID, error) {
	return ParseID(name, chi.URLParam(r, name))
}

// QueryID parses an optional ObjectID query parameter. Absent yields the
// nil id.
func QueryID(r *http.Request, name string) (primitive.ObjectID, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return primitive.NilObjectID, nil
	}
	return ParseID(name, v)
}

// ParseID parses hex as an ObjectID, reporting a validation error for field
// name.
func ParseID(name, hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, wferr.Validation("validation."+name+"_invalid", "invalid "+name)
	}
	return id, nil
}
