package mailbox

import (
	"errors"
	"fmt"
)

// ErrNotRunning is returned by CheckNow when no session is open
var ErrNotRunning = errors.New("mailbox manager is not running")

// ConfigurationError reports missing mailbox settings. The intake lane stays disabled.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "mailbox not configured: " + e.Reason
}

// ConnectionError reports a failed dial, login, select or fetch
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("mailbox %s failed: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
