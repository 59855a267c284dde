// Package bedrock implements the capability collaborators against AWS:
// Bedrock runtime for model streaming and guardrails, Bedrock agent runtime
// for knowledge-base retrieval, and DynamoDB for conversation persistence.
package bedrock

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Clients bundles the AWS service clients the adapters share. All clients
// come from one resolved credential chain and region.
type Clients struct {
	Runtime      *bedrockruntime.Client
	AgentRuntime *bedrockagentruntime.Client
	DynamoDB     *dynamodb.Client
}

// NewClients resolves the default AWS credential chain for the region and
// constructs the service clients.
func NewClients(ctx context.Context, region string) (*Clients, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Clients{
		Runtime:      bedrockruntime.NewFromConfig(cfg),
		AgentRuntime: bedrockagentruntime.NewFromConfig(cfg),
		DynamoDB:     dynamodb.NewFromConfig(cfg),
	}, nil
}
