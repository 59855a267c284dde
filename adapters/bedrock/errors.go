package bedrock

import (
	"context"
	"errors"

	"github.com/aws/smithy-go"

	"turnflow/policy/retry"
)

// Retryable service codes: throttling and transient availability failures.
var retryableCodes = map[string]struct{}{
	"ThrottlingException":                    {},
	"ServiceUnavailableException":            {},
	"InternalServerException":                {},
	"RequestTimeout":                         {},
	"ProvisionedThroughputExceededException": {},
}

// Terminal service codes: another attempt cannot change the outcome.
var terminalCodes = map[string]struct{}{
	"AccessDeniedException":         {},
	"ResourceNotFoundException":     {},
	"ValidationException":           {},
	"UnrecognizedClientException":   {},
	"ServiceQuotaExceededException": {},
}

// Classify maps AWS service errors onto the retry taxonomy. Unknown service
// codes fall back to the error's fault: server faults are worth another
// attempt, client faults are not. Plain transport errors are retryable.
func Classify(err error) retry.Class {
	if err == nil {
		return retry.ClassTerminal
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.ClassTerminal
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if _, ok := retryableCodes[code]; ok {
			return retry.ClassRetryable
		}
		if _, ok := terminalCodes[code]; ok {
			return retry.ClassTerminal
		}
		if apiErr.ErrorFault() == smithy.FaultServer {
			return retry.ClassRetryable
		}
		return retry.ClassTerminal
	}

	// Connection resets and timeouts without a service response.
	return retry.ClassRetryable
}
