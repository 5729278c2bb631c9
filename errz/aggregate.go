package errz

import (
	"github.com/hashicorp/go-multierror"
)

// Aggregate creates an AggregateError wrapping the given errors. The
// individual errors remain reachable through Errors and the cause chain.
func Aggregate(message string, errs []error) *Error {
	var combined *multierror.Error
	for _, err := range errs {
		combined = multierror.Append(combined, err)
	}
	return &Error{
		Kind:    ErrAggregate,
		Message: message,
		Cause:   combined.ErrorOrNil(),
	}
}

// Errors returns the individual errors wrapped by an AggregateError, or a
// single-element slice for any other error.
func Errors(err error) []error {
	e, ok := err.(*Error)
	if !ok || e.Kind != ErrAggregate {
		return []error{err}
	}
	if merr, ok := e.Cause.(*multierror.Error); ok {
		return merr.WrappedErrors()
	}
	if e.Cause != nil {
		return []error{e.Cause}
	}
	return nil
}
