package service

import (
	"errors"
	"fmt"
)

// Service-level error taxonomy. Ingestion-time errors are returned
// synchronously to the caller and never reach the queue; worker-time
// errors surface only through the job record.
var (
	ErrJobNotFound    = errors.New("job not found")
	ErrObjectNotFound = errors.New("object not found")
	ErrNotReady       = errors.New("job not completed")
)

// ValidationError marks malformed client input. Not retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// PolicyError marks a format/size rule breach, carrying the violated rule.
type PolicyError struct {
	Rule    string
	Message string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("%s (rule: %s)", e.Message, e.Rule)
}
