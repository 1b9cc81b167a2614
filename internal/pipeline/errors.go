package pipeline

import "errors"

// Error taxonomy for the ingest pipeline. Components wrap these
// sentinels with fmt.Errorf("%w: ...") and callers match with
// errors.Is. No error is swallowed or downgraded on the way up.
var (
	// ErrConfiguration marks a missing credential, region or bucket name.
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation marks a malformed request, upstream date filter or
	// article shape.
	ErrValidation = errors.New("validation error")

	// ErrAuthentication marks a credential rejected by the upstream API.
	ErrAuthentication = errors.New("authentication error")

	// ErrTransport marks a network failure reaching the upstream API.
	ErrTransport = errors.New("transport error")

	// ErrStorage marks an archive-store failure other than an expected
	// not-found.
	ErrStorage = errors.New("storage error")

	// ErrQueue marks a broker failure other than an expected not-found.
	ErrQueue = errors.New("queue error")

	// ErrConflict marks a create on a resource that already exists.
	ErrConflict = errors.New("already exists")
)
