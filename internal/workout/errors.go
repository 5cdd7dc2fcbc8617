package workout

import "errors"

var (
	ErrNotActive          = errors.New("no active workout session")
	ErrNoExerciseSelected = errors.New("no exercise selected")
	ErrInvalidReps        = errors.New("invalid reps")
	ErrInvalidWeight      = errors.New("invalid weight")
	ErrInvalidEffort      = errors.New("invalid effort rating")
	ErrSetNotFound        = errors.New("set not found")
	ErrSessionNotFound    = errors.New("workout session not found")
	ErrControllerClosed   = errors.New("workout controller closed")
	// ErrSessionQueued is returned when a finished session could not be stored and was
	// queued for a later explicit sync instead.
	ErrSessionQueued = errors.New("workout session queued for sync")
	// ErrMirrorFailed is returned when a finished session was stored but copying it to
	// a secondary destination failed.
	ErrMirrorFailed = errors.New("workout session mirror failed")
)

// ValidationError carries the message shown to the user next to the sentinel it wraps.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func newValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// UserMessage returns the text to show for err, falling back to its Error() string.
func UserMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return err.Error()
}
