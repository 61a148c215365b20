package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"

	"go.uber.org/zap"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/apperr"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Detail string `json:"detail"`
}

// statusFor maps an error code onto an HTTP status.
func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeValidation, apperr.CodeIntegrity:
		return http.StatusBadRequest
	case apperr.CodeUnauthorized:
		return http.StatusForbidden
	case apperr.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		loggerFrom(r.Context(), s.logger).Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(apperr.CodeOf(err))
	if status >= http.StatusInternalServerError {
		loggerFrom(r.Context(), s.logger).Error("request failed", zap.Error(err))
	}
	s.writeJSON(w, r, status, errorBody{Detail: apperr.DetailOf(err)})
}

// decodeJSON reads one JSON document from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Validation("request body too large")
		}
		return apperr.Validation("invalid request body", decodeProblem(err))
	}
	return nil
}

// decodeProblem describes a decoding failure in terms of the JSON document,
// never the Go types it is decoded into.
func decodeProblem(err error) string {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return "body must be " + jsonKind(typeErr.Type)
		}
		return typeErr.Field + " must be " + jsonKind(typeErr.Type)
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)
	case errors.Is(err, io.EOF):
		return "body is empty"
	case errors.Is(err, io.ErrUnexpectedEOF):
		return "body is truncated"
	default:
		return err.Error()
	}
}

// jsonKind names the JSON value a Go type accepts.
func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Slice, reflect.Array:
		return "an array"
	default:
		return "an object"
	}
}
