package artifact

import "errors"

// Error kinds callers branch on with errors.Is. Failures of the storage
// service itself (auth, quota, network) pass through unmodified.
var (
	// ErrMalformedPath reports an object or local path that does not follow
	// the <run>/<tracking_id>/<artifact> convention.
	ErrMalformedPath = errors.New("malformed artifact path")

	// ErrObjectNotFound reports a referenced object that no longer exists
	// remotely.
	ErrObjectNotFound = errors.New("object not found")

	// ErrDeserialize reports fetched or read content that does not match the
	// expected record shape.
	ErrDeserialize = errors.New("malformed artifact content")
)
