package testutil

import "errors"

// Common test errors
var (
	ErrStoreDown   = errors.New("store unreachable")
	ErrTestFailure = errors.New("test failure")
)
