package service

import "errors"

var (
	ErrValidation    = errors.New("validation")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrBasketMissing = errors.New("basket missing")
)
