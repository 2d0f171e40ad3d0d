package proto

import "errors"

var (
	// ErrNoEligibleLane reports an empty candidate set. Callers treat it as
	// "this protocol is not usable here" and try the next candidate
	// protocol; it is not fatal for the context.
	ErrNoEligibleLane = errors.New("no eligible lane")

	// ErrUnsupported reports that the protocol's error-handling
	// requirements cannot be met by the current configuration.
	ErrUnsupported = errors.New("unsupported configuration")
)
