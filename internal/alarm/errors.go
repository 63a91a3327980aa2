package alarm

import "errors"

// ErrStopped is returned by Start after Stop.
var ErrStopped = errors.New("alarm scheduler stopped")
