// Package errorspkg provides common app errors.
package errorspkg

import "errors"

var (
	// ErrInternal indicates internal server error.
	ErrInternal = errors.New("internal")
	// ErrUnavailable indicates that the storage could not be reached. Callers may retry.
	ErrUnavailable = errors.New("service unavailable")
)
