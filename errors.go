package assetcache

import (
	"errors"
	"fmt"
)

var ErrClosed = errors.New("assetcache: cache is closed")

// BackendError reports a durable read or write that could not complete.
// The resident index is never updated for a failed write.
type BackendError struct {
	Op  string // "get", "set" or "load"
	Key string // storage key; empty for "load"
	Err error
}

func (e *BackendError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("assetcache: backend %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("assetcache: backend %s %q failed: %v", e.Op, e.Key, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
