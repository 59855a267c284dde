package turn

import (
	"errors"
	"fmt"
)

var (
	// ErrHistoryNotFound is returned by conversation stores when no history
	// exists for a (threadID, actorID) pair. Adapters treat it as success
	// with empty history, never as a failure.
	ErrHistoryNotFound = errors.New("conversation history not found")

	// ErrContextNil guards publish and execute boundaries.
	ErrContextNil = errors.New("context must not be nil")

	// ErrEmitNil is returned when a streaming turn is started without a
	// fragment emitter.
	ErrEmitNil = errors.New("emit function must not be nil")

	// ErrInputEmpty is returned when a turn carries no input text.
	ErrInputEmpty = errors.New("turn input text must not be empty")
)

// ConfigError reports a missing or malformed required parameter for one
// capability. It is fatal for that capability only: the registry forces the
// capability to disabled and surfaces a warning; the process keeps running.
type ConfigError struct {
	Kind   Kind
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("capability %s config: field %s: %s", e.Kind, e.Field, e.Reason)
}

// IsConfigError reports whether err is a capability configuration error.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}
