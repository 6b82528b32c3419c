package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/samcharles93/cinder/internal/inference"
)

// Values of the "type" field in error bodies.
const (
	typeInvalidRequest = "invalid_request_error"
	typeNotFound       = "not_found_error"
	typeConflict       = "conflict_error"
	typeServer         = "server_error"
)

var errSessionNotFound = errors.New("session not found")

// requestError is a client mistake, optionally tied to one request field.
type requestError struct {
	param string
	msg   string
}

func (e *requestError) Error() string { return e.msg }

func badParam(param, format string, args ...any) error {
	return &requestError{param: param, msg: fmt.Sprintf(format, args...)}
}

// classify maps an error from session creation or a turn to its HTTP
// status and error body. Encoding failures and an empty context only lose
// the turn, so they are client errors; anything unrecognised is a 500.
func classify(err error) (int, ResponseError) {
	body := ResponseError{Message: err.Error(), Type: typeServer}
	var re *requestError
	switch {
	case errors.As(err, &re):
		body.Type, body.Param = typeInvalidRequest, re.param
		return http.StatusBadRequest, body
	case errors.Is(err, errSessionNotFound):
		body.Type = typeNotFound
		return http.StatusNotFound, body
	case errors.Is(err, inference.ErrSessionClosed):
		body.Type, body.Code = typeConflict, "session_closed"
		return http.StatusConflict, body
	case errors.Is(err, inference.ErrInvalidConfig):
		body.Type, body.Code = typeInvalidRequest, "invalid_config"
		return http.StatusBadRequest, body
	case errors.Is(err, inference.ErrEncoding):
		body.Type, body.Code = typeInvalidRequest, "encoding_failed"
		return http.StatusBadRequest, body
	case errors.Is(err, inference.ErrEmptyContext):
		body.Type, body.Code = typeInvalidRequest, "empty_context"
		return http.StatusBadRequest, body
	default:
		return http.StatusInternalServerError, body
	}
}
