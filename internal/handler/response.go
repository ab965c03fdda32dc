package handler

// Every error response has the same shape: {"msg": "..."}.
// Status codes come from the apperror sentinel the error wraps; anything
// unrecognized is a 500 whose detail is logged, never sent.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/practice-tracker/internal/apperror"
)

// MsgServerError is the body of every 500.
const MsgServerError = "Server Error"

// ErrorResponse is the error format returned by all API endpoints.
type ErrorResponse struct {
	Msg string `json:"msg"`
}

// writeJSON sends a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Msg: msg})
}

// writeError converts err into a status code and {msg} body.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError

	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest // 400
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden // 403
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound // 404
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict // 409
		}

		if status != http.StatusInternalServerError {
			writeMsg(w, status, appErr.Message)
			return
		}
	}

	logger.Error("request failed", slog.String("error", err.Error()))
	writeMsg(w, http.StatusInternalServerError, MsgServerError)
}

// decodeJSON reads a JSON request body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// NotFound answers unknown API routes in the standard error shape.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeMsg(w, http.StatusNotFound, "Not found")
}
