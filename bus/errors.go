package bus

import "fmt"

// PeerDisconnectedError resolves a Call that was in flight when the
// connection dropped.
type PeerDisconnectedError struct {
	ConnID string
}

func (err PeerDisconnectedError) Error() string {
	return fmt.Sprintf("peer disconnected: %s", err.ConnID)
}

// ErrContextMissingValue is returned when a context is missing an expected
// value.
type ErrContextMissingValue struct {
	Key connContext
}

func (err ErrContextMissingValue) Error() string {
	return fmt.Sprintf("context missing value: %s", string(err.Key))
}
