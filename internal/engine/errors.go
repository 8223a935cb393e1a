package engine

import "errors"

var (
	// ErrStopped is returned by Submit once the engine has stopped, and to
	// requests still queued when it stops.
	ErrStopped = errors.New("engine stopped")

	// ErrAlreadyRunning is returned by a second concurrent call to Run.
	ErrAlreadyRunning = errors.New("engine already running")

	// ErrNilInstruction is returned by Submit for a request with no
	// instruction.
	ErrNilInstruction = errors.New("request has no instruction")
)
