package main

import (
	"encoding/json"
	"github.com/myrjola/chronicler/internal/ai"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/intelligence"
	"github.com/myrjola/chronicler/internal/repositories"
	"github.com/myrjola/chronicler/internal/review"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// maxBodyBytes bounds request bodies. Session notes are the largest payloads.
const maxBodyBytes = 4 << 20

// errInvalidBody marks a request body that cannot be decoded or misses required fields.
var errInvalidBody = errors.NewSentinel("invalid request body")

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", errors.SlogError(err))
	app.writeJSON(w, r, http.StatusInternalServerError, errorResponse{
		Error:     http.StatusText(http.StatusInternalServerError),
		Retryable: false,
	})
}

func (app *application) clientError(w http.ResponseWriter, r *http.Request, status int, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelDebug, http.StatusText(status), errors.SlogError(err))
	message := http.StatusText(status)
	if err != nil {
		message = err.Error()
	}
	app.writeJSON(w, r, status, errorResponse{Error: message, Retryable: false})
}

// handleError maps domain errors to responses.
func (app *application) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *repositories.ConflictError
	switch {
	case errors.As(err, &conflict):
		app.writeJSON(w, r, http.StatusConflict, map[string]any{
			"conflict":       true,
			"currentVersion": conflict.CurrentVersion,
		})
	case errors.Is(err, repositories.ErrNotFound):
		app.clientError(w, r, http.StatusNotFound, err)
	case errors.Is(err, errInvalidBody), errors.Is(err, intelligence.ErrSuggestionShape),
		errors.Is(err, ai.ErrUnknownProvider):
		app.clientError(w, r, http.StatusBadRequest, err)
	case errors.Is(err, review.ErrBusy), errors.Is(err, review.ErrNotReviewing), errors.Is(err, repositories.ErrConflict):
		app.clientError(w, r, http.StatusConflict, err)
	case errors.Is(err, intelligence.ErrGeneration):
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "generation failed", errors.SlogError(err))
		app.writeJSON(w, r, http.StatusBadGateway, errorResponse{
			Error:     "the language model failed, try again",
			Retryable: true,
		})
	default:
		app.serverError(w, r, err)
	}
}

func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelError, "encode response",
			errors.SlogError(errors.Wrap(err, "marshal json")))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// readJSON decodes the request body into dst. Unknown fields are rejected so that typos surface as 400.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return errors.Wrap(errors.Join(errInvalidBody, err), "decode request body")
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return errors.Wrap(errInvalidBody, "request body has trailing data")
	}
	return nil
}

// requireField returns errInvalidBody when value is blank.
func requireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.Wrap(errInvalidBody, "missing "+name, slog.String("field", name))
	}
	return nil
}
