package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is the root of every construction error.
	ErrInvalidArgument = errors.New("cache: invalid argument")

	// ErrInvalidTTL is returned by New when the time to live is not positive.
	ErrInvalidTTL = fmt.Errorf("%w: time to live must be greater than 0", ErrInvalidArgument)

	// ErrInvalidMaxSize is returned by New when the size bound is negative.
	ErrInvalidMaxSize = fmt.Errorf("%w: maximum size must be greater than or equal to 0", ErrInvalidArgument)

	// ErrUnsupported is returned by the collection view accessors.
	// It matches errors.ErrUnsupported.
	ErrUnsupported = fmt.Errorf("cache: live views are not supported, use Snapshot: %w", errors.ErrUnsupported)
)
