package scanner

import "fmt"

// ScanError describes a failure inside a named scan component. Stage
// failures abort the scan, so the error carries enough context for an
// operator to tell which stage died and why.
type ScanError struct {
	Component string // component that failed (e.g. "pipeline")
	Action    string // action being performed (e.g. "information_collection")
	Message   string // operator-readable summary
	Err       error  // underlying error
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Component, e.Action, e.Message)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ScanError) Unwrap() error {
	return e.Err
}

// NewScanError creates a new ScanError.
func NewScanError(component, action, message string, err error) *ScanError {
	return &ScanError{
		Component: component,
		Action:    action,
		Message:   message,
		Err:       err,
	}
}
