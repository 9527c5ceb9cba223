package core

import (
	"errors"
	"fmt"
)

// AuthError means no valid bearer token could be obtained. It is the only
// failure that escapes the engine: nothing useful can proceed without a token.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// UpstreamError is a transient network or HTTP failure from a data source.
// It is caught at the source-query boundary and degrades to "this source has
// nothing" rather than crashing the pipeline.
type UpstreamError struct {
	Source string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ParseError is a malformed upstream payload. Treated exactly like an
// UpstreamError by callers.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsAuthError reports whether err is (or wraps) an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
