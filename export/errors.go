package export

import "fmt"

// MethodNotFoundError is returned when a dispatched name has no registered
// handler. No handler is invoked.
type MethodNotFoundError struct {
	Method string
}

func (err MethodNotFoundError) Error() string {
	return fmt.Sprintf("method not found: %s", err.Method)
}

// DuplicateMethodError is returned by Register under the Reject policy when
// the name is already taken. The original handler is kept.
type DuplicateMethodError struct {
	Method string
}

func (err DuplicateMethodError) Error() string {
	return fmt.Sprintf("method already registered: %s", err.Method)
}

// AlreadyPublishedError is returned when publishing over an existing
// (path, interface) binding.
type AlreadyPublishedError struct {
	Path  string
	Iface string
}

func (err AlreadyPublishedError) Error() string {
	return fmt.Sprintf("object already published: %s %s", err.Path, err.Iface)
}
