package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/metalagman/devboard/internal/azure"
	"github.com/metalagman/devboard/internal/session"
	"github.com/metalagman/devboard/internal/workitem"
	"github.com/rs/zerolog/log"
)

type errorBody struct {
	Error  string `json:"error"`
	Field  string `json:"field,omitempty"`
	ItemID int    `json:"itemId,omitempty"`
	Target int    `json:"targetId,omitempty"`
}

// requestError is a malformed request body or path.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error { return &requestError{msg: msg} }

// localError is a failure of this server's own state, such as the session
// database, as opposed to the remote store.
type localError struct {
	err error
}

func (e *localError) Error() string { return e.err.Error() }
func (e *localError) Unwrap() error { return e.err }

func internalError(err error) error { return &localError{err: err} }

func statusOf(err error) int {
	var (
		cv     *workitem.ConstraintViolation
		verr   *workitem.ValidationError
		reqErr *requestError
		local  *localError
	)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusUnauthorized
	case errors.As(err, &local):
		return http.StatusInternalServerError
	case errors.As(err, &cv):
		return http.StatusUnprocessableEntity
	case errors.As(err, &verr), errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.Is(err, azure.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, azure.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	body := errorBody{Error: err.Error()}

	var cv *workitem.ConstraintViolation
	var verr *workitem.ValidationError
	switch {
	case errors.As(err, &cv):
		body.Error = cv.Reason
		body.ItemID = cv.ItemID
		body.Target = cv.TargetID
	case errors.As(err, &verr):
		body.Error = verr.Reason
		body.Field = verr.Field
	}
	switch status {
	case http.StatusBadGateway:
		log.Error().Err(err).Msg("remote call failed")
	case http.StatusInternalServerError:
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}
