package service

import "errors"

// Error taxonomy of the orchestration core. Services return these (usually
// wrapped with context); the server's error middleware maps them to HTTP
// statuses. Nothing here is retried silently — partial failure always
// reaches the caller.
var (
	// ErrSessionNotFound: unknown, expired or closed session id. The
	// caller should start a new session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrAlreadyRunning: the session already has an active propagation
	// run. The caller should cancel it or wait.
	ErrAlreadyRunning = errors.New("propagation already running")

	// ErrInvalidArgument: malformed frame index, object id or points.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInferenceFailure: the model collaborator errored. The current
	// operation/stream terminates; the session stays usable.
	ErrInferenceFailure = errors.New("inference failure")
)
