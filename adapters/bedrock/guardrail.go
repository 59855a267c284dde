package bedrock

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"turnflow/turn"
)

// Guardrail evaluates text against a Bedrock guardrail. A guardrail
// intervention maps to a blocked verdict; only transport and service
// failures surface as errors.
type Guardrail struct {
	client  *bedrockruntime.Client
	id      string
	version string
}

// NewGuardrail wraps one guardrail identity.
func NewGuardrail(client *bedrockruntime.Client, id, version string) *Guardrail {
	return &Guardrail{client: client, id: id, version: version}
}

// Evaluate applies the guardrail to the text as the given source side.
func (g *Guardrail) Evaluate(ctx context.Context, source turn.SafetySource, text string) (turn.Verdict, error) {
	contentSource := types.GuardrailContentSourceInput
	if source == turn.SafetySourceOutput {
		contentSource = types.GuardrailContentSourceOutput
	}

	out, err := g.client.ApplyGuardrail(ctx, &bedrockruntime.ApplyGuardrailInput{
		GuardrailIdentifier: aws.String(g.id),
		GuardrailVersion:    aws.String(g.version),
		Source:              contentSource,
		Content: []types.GuardrailContentBlock{
			&types.GuardrailContentBlockMemberText{
				Value: types.GuardrailTextBlock{Text: aws.String(text)},
			},
		},
	})
	if err != nil {
		return turn.Verdict{}, fmt.Errorf("apply guardrail %s: %w", g.id, err)
	}

	if out.Action == types.GuardrailActionGuardrailIntervened {
		return turn.Verdict{Allowed: false, Reason: interventionReason(out.Outputs)}, nil
	}
	return turn.Verdict{Allowed: true}, nil
}

func interventionReason(outputs []types.GuardrailOutputContent) string {
	parts := make([]string, 0, len(outputs))
	for _, output := range outputs {
		if text := aws.ToString(output.Text); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "guardrail intervened"
	}
	return strings.Join(parts, " ")
}
