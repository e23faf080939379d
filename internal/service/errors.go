// Package service implements the allocation engine: reservation lifecycle,
// the activation sweeper, the waiting-list allocator and table operations.
// Services depend on small store interfaces so the same logic runs over
// MySQL or the in-memory store.
package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/restaurant-table-allocation/internal/repository"
)

// Error kinds.  Use errors.Is against these; the concrete *Error carries a
// client-facing message.
var (
	ErrValidation     = errors.New("validation failed")
	ErrConflict       = errors.New("conflict")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrCapacity       = errors.New("table too small")
	ErrTransientStore = errors.New("store unavailable")
)

// Error is returned by every service operation.
type Error struct {
	Kind error
	Msg  string
	// Suggestions holds alternative times offered with a slot conflict.
	Suggestions []string
	cause       error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Msg + ": " + e.cause.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

func fail(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// storeError translates a repository error.  what names the missing thing
// for not-found errors.
func storeError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fail(ErrNotFound, "%s not found", what)
	case errors.Is(err, repository.ErrConflict):
		return fail(ErrConflict, "%s changed concurrently", what)
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Kind: ErrTransientStore, Msg: "store unavailable", cause: err}
}
