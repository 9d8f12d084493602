package service

import "errors"

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrCourseNotFound = errors.New("course not found")
	ErrInvalidStatus  = errors.New("status must be active or inactive")
	ErrDraftKind      = errors.New("unknown draft kind")
)
