// Package repos holds errors shared by every store implementation.
package repos

import "errors"

// ErrConflict reports a transaction scope aborted by the store because of
// concurrent contention. The scope may be retried as a whole.
var ErrConflict = errors.New("store conflict")
