package store

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidStatus   = errors.New("invalid attendance status")
	ErrInvalidPlayerID = errors.New("player id cannot name an attendance column")
)

// NotifyUserError means a statement kept failing after every retry. The
// conversation layer answers it with an apology to the user and a report
// of Stmt to the maintainer.
type NotifyUserError struct {
	Stmt string
	Err  error
}

func (e *NotifyUserError) Error() string {
	return fmt.Sprintf("statement failed after retries: %s: %v", e.Stmt, e.Err)
}

func (e *NotifyUserError) Unwrap() error { return e.Err }

// NotifyAdminError is raised on reporting paths that have no end user to
// apologise to; only the maintainer hears about it.
type NotifyAdminError struct {
	Op  string
	Err error
}

func (e *NotifyAdminError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NotifyAdminError) Unwrap() error { return e.Err }

// StatementOf extracts the failing statement of a NotifyUserError, or the
// error text for anything else.
func StatementOf(err error) string {
	var nu *NotifyUserError
	if errors.As(err, &nu) {
		return nu.Stmt
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
