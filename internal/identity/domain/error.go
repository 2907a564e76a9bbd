package domain

import "errors"

var (
	ErrUserNotFound = errors.New("user_not_found")
	ErrUserExists   = errors.New("user_exists")
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrInvalidRole  = errors.New("invalid_role")
)
