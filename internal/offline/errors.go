package offline

import "errors"

var (
	// ErrOffline is returned by Sync while the monitor reports OFFLINE.
	ErrOffline = errors.New("offline")
	// ErrNotFound is returned when an entity is neither on the server nor
	// in the local snapshot.
	ErrNotFound = errors.New("entity not found")
)

// Remote errors opt into classification by implementing these.
type rejection interface{ Rejected() bool }
type notFound interface{ NotFound() bool }

// IsRejected reports whether the server refused the request outright.
// Rejected writes are never queued for retry.
func IsRejected(err error) bool {
	var r rejection
	return errors.As(err, &r) && r.Rejected()
}

// IsNotFound reports whether the server said the entity does not exist.
func IsNotFound(err error) bool {
	var n notFound
	return errors.As(err, &n) && n.NotFound()
}
