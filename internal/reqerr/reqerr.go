// Package reqerr defines the structured error surface shared by the
// websocket transport and the message-bus consumers. The JSON shape of
// RequestError is part of the client contract and must not change.
package reqerr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeGeneral   Code = "GENERAL"
	CodeWebsocket Code = "WEBSOCKET"
	CodeBus       Code = "BUS"
)

type Subcode string

const (
	SubcodeNotFound    Subcode = "NOT_FOUND"
	SubcodeConflict    Subcode = "REQUEST_CONFLICT"
	SubcodeInvalidMove Subcode = "INVALID_MOVE"
	SubcodeValidation  Subcode = "VALIDATION_ERROR"
	SubcodeInternal    Subcode = "INTERNAL_SERVER_ERROR"
)

type ErrorObject struct {
	Message   string `json:"message"`
	FieldPath string `json:"fieldPath,omitempty"`
}

// RequestError is emitted verbatim as the "error" event payload.
type RequestError struct {
	HTTPStatus int           `json:"httpStatus"`
	Code       Code          `json:"code"`
	Subcode    Subcode       `json:"subcode"`
	Errors     []ErrorObject `json:"errors"`
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s/%s (%d)", e.Code, e.Subcode, e.HTTPStatus)
}

func NotFound(msg string) *RequestError {
	return &RequestError{
		HTTPStatus: http.StatusNotFound,
		Code:       CodeWebsocket,
		Subcode:    SubcodeNotFound,
		Errors:     []ErrorObject{{Message: msg}},
	}
}

func Conflict(msg string) *RequestError {
	return &RequestError{
		HTTPStatus: http.StatusConflict,
		Code:       CodeWebsocket,
		Subcode:    SubcodeConflict,
		Errors:     []ErrorObject{{Message: msg}},
	}
}

func InvalidMove(msg string) *RequestError {
	return &RequestError{
		HTTPStatus: http.StatusConflict,
		Code:       CodeWebsocket,
		Subcode:    SubcodeInvalidMove,
		Errors:     []ErrorObject{{Message: msg}},
	}
}

func Validation(code Code, objs ...ErrorObject) *RequestError {
	if len(objs) == 0 {
		objs = []ErrorObject{{Message: "invalid payload"}}
	}
	return &RequestError{
		HTTPStatus: http.StatusBadRequest,
		Code:       code,
		Subcode:    SubcodeValidation,
		Errors:     objs,
	}
}

func Internal(code Code, msg string) *RequestError {
	return &RequestError{
		HTTPStatus: http.StatusInternalServerError,
		Code:       code,
		Subcode:    SubcodeInternal,
		Errors:     []ErrorObject{{Message: msg}},
	}
}

// From normalizes any error into a RequestError, defaulting to an internal
// websocket error for unrecognized ones.
func From(err error) *RequestError {
	var rerr *RequestError
	if errors.As(err, &rerr) {
		return rerr
	}
	return Internal(CodeWebsocket, "Internal server error")
}
