package errors

import (
	"errors"
	"net/http"
)

var (
	NotFound            = HttpError{http.StatusNotFound, errors.New("not found")}
	Duplicate           = HttpError{http.StatusConflict, errors.New("duplicate")}
	Conflict            = HttpError{http.StatusConflict, errors.New("conflict")}
	BadRequest          = HttpError{http.StatusBadRequest, errors.New("bad request")}
	InvalidArgument     = HttpError{http.StatusBadRequest, errors.New("invalid argument")}
	Unauthorized        = HttpError{http.StatusUnauthorized, errors.New("unauthorized")}
	Forbidden           = HttpError{http.StatusForbidden, errors.New("forbidden")}
	UnprocessableEntity = HttpError{http.StatusUnprocessableEntity, errors.New("unprocessable entity")}
	InternalServerError = HttpError{http.StatusInternalServerError, errors.New("internal server error")}
	BadGateway          = HttpError{http.StatusBadGateway, errors.New("bad gateway")}
)

type HttpError struct {
	Code int
	Err  error
}

func (h HttpError) Unwrap() error {
	return h.Err
}

func (h HttpError) Error() string {
	return h.Err.Error()
}
