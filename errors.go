package main

import "fmt"

// ParseError reports a malformed or arity-violating command line. The
// session keeps running and no state is touched.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return e.Message
}

func parseErrorf(format string, args ...any) error {
	return &ParseError{Message: fmt.Sprintf(format, args...)}
}

// UsageError reports a well-formed command that is invalid against the
// current register typing. Guards raising it run before any mutation.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

func usageErrorf(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}
