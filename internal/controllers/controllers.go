package controllers

import "errors"

var (
	ErrBadRequest     = errors.New("bad request")
	ErrTooManyWords   = errors.New("too many words")
	ErrGetWords       = errors.New("failed to get words")
	ErrPartialCreate  = errors.New("partial failure in create")
	ErrCreate         = errors.New("failed to create")
	ErrEncoding       = errors.New("failed to encode")
	ErrParsingJSON    = errors.New("failed to parse json")
	ErrInvalidRequest = errors.New("invalid request")
	ErrLogin          = errors.New("failed to login")
)
