package domain

import "fmt"

// ValidationError is a malformed client request. Maps to 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ModelParseError means the model reply was not a structured document.
// It is recovered into a clarification and never surfaces as a 5xx.
type ModelParseError struct {
	Raw string
	Err error
}

func (e *ModelParseError) Error() string {
	return fmt.Sprintf("model reply is not structured data: %v", e.Err)
}

func (e *ModelParseError) Unwrap() error { return e.Err }

// UpstreamError is a failure talking to the model service. Maps to 500.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// PersistenceError is a failed database read or write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
