package engine

import "fmt"

// activationError signals that a session could not be activated (session
// start or prompt feed failed). The request is dropped without consuming a
// capacity slot.
type activationError struct{ cause error }

func (e activationError) Error() string { return fmt.Sprintf("activation failed: %v", e.cause) }
func (e activationError) Unwrap() error { return e.cause }

// IsActivationError reports whether err came from a failed admission.
func IsActivationError(err error) bool {
	_, ok := err.(activationError)
	return ok
}

// stepError signals that the model raised an error mid-stream. The session is
// terminated; other sessions are unaffected.
type stepError struct {
	session string
	cause   error
}

func (e stepError) Error() string { return fmt.Sprintf("session %s: step failed: %v", e.session, e.cause) }
func (e stepError) Unwrap() error { return e.cause }

// IsStepError reports whether err is a per-session stepping failure.
func IsStepError(err error) bool {
	_, ok := err.(stepError)
	return ok
}

// receiverGoneError signals that the caller stopped receiving mid-stream.
type receiverGoneError struct{ session string }

func (e receiverGoneError) Error() string {
	return fmt.Sprintf("session %s: stream receiver gone", e.session)
}

// IsReceiverGone reports whether err indicates the caller dropped its stream.
func IsReceiverGone(err error) bool {
	_, ok := err.(receiverGoneError)
	return ok
}

// errInvalidRequest signals a malformed request rejected at Submit.
type errInvalidRequest struct{ reason string }

func (e errInvalidRequest) Error() string { return "invalid request: " + e.reason }

// closedError is returned by Submit after the engine's intake has been closed.
type closedError struct{}

func (closedError) Error() string { return "engine: intake closed" }

// IsClosed reports whether err indicates the engine no longer accepts requests.
func IsClosed(err error) bool {
	_, ok := err.(closedError)
	return ok
}
