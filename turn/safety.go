package turn

import (
	"context"

	"turnflow/policy/retry"
)

// InterventionMessage is the fixed, non-technical apology shown when a safety
// evaluation blocks content. It is intentionally generic so policy details
// are not revealed to the end user.
const InterventionMessage = "I apologize, but I cannot provide that response as it violates " +
	"content safety policies. Please rephrase your request or ask " +
	"something different."

// SafetyAdapter evaluates user input and model output against the external
// content-safety service. A blocked verdict is a successful invocation whose
// payload signals the block; transport and service failures degrade to a
// pass-through with no verdict.
type SafetyAdapter struct {
	evaluator        SafetyEvaluator
	guardrailID      string
	guardrailVersion string
	policy           retry.Policy
}

// NewSafetyAdapter builds the safety capability around its collaborator.
func NewSafetyAdapter(evaluator SafetyEvaluator, guardrailID, guardrailVersion string, policy retry.Policy) *SafetyAdapter {
	return &SafetyAdapter{
		evaluator:        evaluator,
		guardrailID:      guardrailID,
		guardrailVersion: guardrailVersion,
		policy:           policy,
	}
}

func (a *SafetyAdapter) Kind() Kind {
	return KindSafety
}

func (a *SafetyAdapter) Validate() error {
	if a.evaluator == nil {
		return &ConfigError{Kind: KindSafety, Field: "evaluator", Reason: "collaborator is not configured"}
	}
	if err := validateIdentifier(KindSafety, "guardrail_id", a.guardrailID); err != nil {
		return err
	}
	if a.guardrailVersion == "" {
		return &ConfigError{
			Kind:   KindSafety,
			Field:  "guardrail_version",
			Reason: "version is required when the guardrail id is set",
		}
	}
	return nil
}

// EvaluateInput checks the turn's input text before the model call.
func (a *SafetyAdapter) EvaluateInput(ctx context.Context, state *State) Result {
	return a.evaluate(ctx, state, SafetySourceInput, state.InputText)
}

// EvaluateOutput checks the assembled output text after the model call.
func (a *SafetyAdapter) EvaluateOutput(ctx context.Context, state *State) Result {
	return a.evaluate(ctx, state, SafetySourceOutput, state.AssembledOutput())
}

func (a *SafetyAdapter) evaluate(ctx context.Context, state *State, source SafetySource, text string) Result {
	verdict, err := retry.Do(ctx, a.policy, func(ctx context.Context) (Verdict, error) {
		return a.evaluator.Evaluate(ctx, source, text)
	})

	var result Result
	if err != nil {
		result = failedResult(KindSafety, invocationErrorKind(err), err)
	} else {
		switch source {
		case SafetySourceInput:
			state.InputVerdict = &verdict
		case SafetySourceOutput:
			state.OutputVerdict = &verdict
		}
		if verdict.Allowed {
			result = successResult(KindSafety, "allowed")
		} else {
			result = successResult(KindSafety, PayloadBlocked)
		}
	}
	state.recordResult(result)
	return result
}
