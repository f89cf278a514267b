package memo

import (
	"errors"
	"fmt"
)

// ErrImmutable is returned by configuration setters on a Facade.
var ErrImmutable = errors.New("environment is immutable")

// ErrComputePanicked is memoized for a key whose lookup panicked.
var ErrComputePanicked = errors.New("memo: lookup panicked")

// ConfigError reports an attempt to change a memoized environment's
// configuration. Such calls always fail: memoized results would no longer
// match the configuration.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("memo: %s: %v", e.Op, e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }
