package application

import "errors"

// ErrConflict reports a duplicate transaction id or a reused idempotency key.
var ErrConflict = errors.New("conflict")
