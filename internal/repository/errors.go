// Package repository defines persistence interfaces and shared sentinel
// errors. Implementations live under internal/infra/adapter/persistence.
package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate indicates a uniqueness constraint was violated.
	ErrDuplicate = errors.New("record already exists")
)
