// Package httputil holds the HTTP helpers shared by every service.
package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/aaronwang/auction-platform/shared/apperror"
)

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// RespondRaw sends an already-encoded JSON body
func RespondRaw(w http.ResponseWriter, statusCode int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}

// RespondError sends err as a JSON error response. Backend bodies carried by
// an *apperror.Error are written unchanged with their original status.
func RespondError(w http.ResponseWriter, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.Internal(err)
	}
	RespondRaw(w, appErr.HTTPStatus(), appErr.ResponseBody())
}

// RespondMessage sends {"error": message} with the given status
func RespondMessage(w http.ResponseWriter, statusCode int, message string) {
	RespondJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// DecodeJSON decodes the request body into v. An empty body decodes as {}.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return apperror.InvalidInput("unable to read request body")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return apperror.InvalidInput("%s has the wrong type", typeErr.Field)
		}
		return apperror.InvalidInput("Invalid JSON")
	}
	return nil
}
