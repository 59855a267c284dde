package turn

import (
	"errors"
	"fmt"

	"turnflow/policy/retry"
)

// Adapter is the uniform contract shared by the per-kind capability adapters.
// Validate runs once at startup; a failure forces the capability to disabled
// without crashing the process. Invocation surfaces are typed per kind on the
// concrete adapters; every invocation performs exactly one outbound service
// call per retry attempt and never holds state between turns.
type Adapter interface {
	Kind() Kind
	Validate() error
}

// Resource identifiers shorter than this are rejected at validation time.
const minIdentifierLen = 5

func validateIdentifier(kind Kind, field, value string) error {
	if value == "" {
		return &ConfigError{Kind: kind, Field: field, Reason: "required parameter is empty"}
	}
	if len(value) < minIdentifierLen {
		return &ConfigError{
			Kind:   kind,
			Field:  field,
			Reason: fmt.Sprintf("identifier %q is shorter than %d characters", value, minIdentifierLen),
		}
	}
	return nil
}

// invocationErrorKind maps a retry executor failure to the result taxonomy.
// The executor returns terminal errors unwrapped on first occurrence and
// wraps exhausted retryable errors in ErrAttemptsExhausted.
func invocationErrorKind(err error) ErrorKind {
	if errors.Is(err, retry.ErrAttemptsExhausted) {
		return ErrorKindTransient
	}
	return ErrorKindTerminal
}
