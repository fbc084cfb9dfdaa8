package engine

import "fmt"

// ValidationError indicates the submission was rejected locally before any
// remote call was made
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// SubmissionError indicates the engine rejected a start-counting request.
// Detail carries the server-provided message and is surfaced to the operator
// verbatim.
type SubmissionError struct {
	StatusCode int
	Detail     string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("engine rejected submission (status %d): %s", e.StatusCode, e.Detail)
}

// NetworkError indicates a transport failure talking to the engine
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ParseError indicates the engine returned a malformed or unparseable body
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s response malformed: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
