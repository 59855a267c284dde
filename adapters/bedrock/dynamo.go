package bedrock

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"turnflow/turn"
)

// DynamoStore persists conversation history in a DynamoDB table named by the
// memory id, keyed by the "threadID#actorID" pair. The full history is
// written as one item so load stays a single GetItem.
type DynamoStore struct {
	client *dynamodb.Client
	table  string
}

// NewDynamoStore wraps one conversation table.
func NewDynamoStore(client *dynamodb.Client, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

type conversationItem struct {
	ConversationKey string             `dynamodbav:"conversation_key"`
	Messages        []persistedMessage `dynamodbav:"messages"`
}

type persistedMessage struct {
	Role    string `dynamodbav:"role"`
	Content string `dynamodbav:"content"`
}

func conversationKey(threadID, actorID string) string {
	return threadID + "#" + actorID
}

// Load fetches the stored history for the pair. A missing item maps to
// turn.ErrHistoryNotFound; a missing table surfaces as a service error.
func (s *DynamoStore) Load(ctx context.Context, threadID, actorID string) ([]turn.Message, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"conversation_key": &types.AttributeValueMemberS{Value: conversationKey(threadID, actorID)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get conversation from %s: %w", s.table, err)
	}
	if len(out.Item) == 0 {
		return nil, turn.ErrHistoryNotFound
	}

	var item conversationItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal conversation item: %w", err)
	}

	history := make([]turn.Message, 0, len(item.Messages))
	for _, msg := range item.Messages {
		history = append(history, turn.Message{Role: turn.Role(msg.Role), Content: msg.Content})
	}
	return history, nil
}

// Save replaces the stored history for the pair with the given transcript.
func (s *DynamoStore) Save(ctx context.Context, threadID, actorID string, history []turn.Message) error {
	messages := make([]persistedMessage, 0, len(history))
	for _, msg := range history {
		messages = append(messages, persistedMessage{Role: string(msg.Role), Content: msg.Content})
	}

	item, err := attributevalue.MarshalMap(conversationItem{
		ConversationKey: conversationKey(threadID, actorID),
		Messages:        messages,
	})
	if err != nil {
		return fmt.Errorf("marshal conversation item: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put conversation to %s: %w", s.table, err)
	}
	return nil
}
