package bedrock

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"turnflow/turn"
)

// Model streams Bedrock Converse responses as turn stream events. Tool-use
// framing on the wire is tagged with its origin so the demultiplexer can
// filter it; nothing is dropped at this layer.
type Model struct {
	client  *bedrockruntime.Client
	modelID string
}

// NewModel wraps one Bedrock runtime client for a fixed model id.
func NewModel(client *bedrockruntime.Client, modelID string) *Model {
	return &Model{client: client, modelID: modelID}
}

// Stream opens one ConverseStream call for the prompt. The returned stream
// yields events until the service closes the connection.
func (m *Model) Stream(ctx context.Context, prompt turn.Prompt) (turn.EventStream, error) {
	input := &bedrockruntime.ConverseStreamInput{
		ModelId:  aws.String(m.modelID),
		Messages: buildMessages(prompt),
	}
	if prompt.System != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: prompt.System},
		}
	}

	out, err := m.client.ConverseStream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("converse stream %s: %w", m.modelID, err)
	}
	return &converseEventStream{stream: out.GetStream()}, nil
}

// buildMessages replays the conversation history and appends the current
// input. Retrieved context is framed ahead of the question inside the final
// user message so the model treats it as grounding material.
func buildMessages(prompt turn.Prompt) []types.Message {
	messages := make([]types.Message, 0, len(prompt.History)+1)
	for _, msg := range prompt.History {
		role := types.ConversationRoleUser
		if msg.Role == turn.RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		messages = append(messages, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: msg.Content}},
		})
	}

	text := prompt.Input
	if prompt.Context != "" {
		text = fmt.Sprintf("Context information:\n%s\n\nQuestion: %s", prompt.Context, prompt.Input)
	}
	messages = append(messages, types.Message{
		Role:    types.ConversationRoleUser,
		Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: text}},
	})
	return messages
}

// converseEventStream adapts the SDK's channel-based event stream to the
// pull-based contract.
type converseEventStream struct {
	stream *bedrockruntime.ConverseStreamEventStream
}

func (s *converseEventStream) Next(ctx context.Context) (turn.StreamEvent, error) {
	for {
		select {
		case <-ctx.Done():
			return turn.StreamEvent{}, ctx.Err()
		case raw, ok := <-s.stream.Events():
			if !ok {
				if err := s.stream.Err(); err != nil {
					return turn.StreamEvent{}, fmt.Errorf("converse stream: %w", err)
				}
				return turn.StreamEvent{}, io.EOF
			}
			event, ok := mapStreamEvent(raw)
			if !ok {
				continue
			}
			return event, nil
		}
	}
}

func (s *converseEventStream) Close() error {
	return s.stream.Close()
}

// mapStreamEvent translates one wire event. Lifecycle framing (message
// start/stop, block stop, metadata) carries no content and is skipped.
func mapStreamEvent(raw types.ConverseStreamOutput) (turn.StreamEvent, bool) {
	switch v := raw.(type) {
	case *types.ConverseStreamOutputMemberContentBlockDelta:
		switch delta := v.Value.Delta.(type) {
		case *types.ContentBlockDeltaMemberText:
			return turn.StreamEvent{Origin: turn.OriginText, Text: delta.Value}, true
		case *types.ContentBlockDeltaMemberToolUse:
			return turn.StreamEvent{Origin: turn.OriginToolCall, Text: aws.ToString(delta.Value.Input)}, true
		default:
			return turn.StreamEvent{}, false
		}
	case *types.ConverseStreamOutputMemberContentBlockStart:
		if start, ok := v.Value.Start.(*types.ContentBlockStartMemberToolUse); ok {
			return turn.StreamEvent{Origin: turn.OriginToolCall, ToolName: aws.ToString(start.Value.Name)}, true
		}
		return turn.StreamEvent{}, false
	default:
		return turn.StreamEvent{}, false
	}
}
