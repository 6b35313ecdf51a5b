package directory

import "errors"

// LoadFailedMessage is the only failure text shown to users.
const LoadFailedMessage = "Failed to load users. Please try again later."

var (
	// ErrLoadFailed covers every failure to read the user collection.
	ErrLoadFailed = errors.New("directory: load failed")
	// ErrLoaderClosed is returned when a load is requested after teardown.
	ErrLoaderClosed = errors.New("directory: loader closed")
)
