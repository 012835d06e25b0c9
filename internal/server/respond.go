package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/chris-regnier/diaryweb/internal/auth"
	"github.com/chris-regnier/diaryweb/internal/media"
	"github.com/chris-regnier/diaryweb/internal/storage"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// requestError is a client mistake detected by a handler itself.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	var reqErr *requestError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.status
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrValidation), errors.Is(err, auth.ErrValidation),
		errors.Is(err, media.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, media.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrConflict), errors.Is(err, auth.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		s.log.Errorw("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestID(r),
			"error", err,
		)
		msg = "internal server error"
	case http.StatusNotFound:
		if errors.Is(err, storage.ErrNotFound) {
			msg = "entry not found"
		}
	case http.StatusRequestEntityTooLarge:
		msg = "upload too large"
	}
	writeJSON(w, status, ErrorBody{Error: msg, Status: status})
}
