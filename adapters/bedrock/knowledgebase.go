package bedrock

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"

	"turnflow/turn"
)

// KnowledgeBase queries a Bedrock knowledge base for ranked passages.
type KnowledgeBase struct {
	client     *bedrockagentruntime.Client
	id         string
	numResults int32
}

// NewKnowledgeBase wraps one knowledge-base identity with a fixed result
// count.
func NewKnowledgeBase(client *bedrockagentruntime.Client, id string, numResults int) *KnowledgeBase {
	return &KnowledgeBase{client: client, id: id, numResults: int32(numResults)}
}

// Query retrieves the top passages for the text. An empty result list is a
// valid outcome.
func (kb *KnowledgeBase) Query(ctx context.Context, text string) ([]turn.Passage, error) {
	out, err := kb.client.Retrieve(ctx, &bedrockagentruntime.RetrieveInput{
		KnowledgeBaseId: aws.String(kb.id),
		RetrievalQuery:  &types.KnowledgeBaseQuery{Text: aws.String(text)},
		RetrievalConfiguration: &types.KnowledgeBaseRetrievalConfiguration{
			VectorSearchConfiguration: &types.KnowledgeBaseVectorSearchConfiguration{
				NumberOfResults: aws.Int32(kb.numResults),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve from knowledge base %s: %w", kb.id, err)
	}

	passages := make([]turn.Passage, 0, len(out.RetrievalResults))
	for _, result := range out.RetrievalResults {
		passage := turn.Passage{Score: aws.ToFloat64(result.Score)}
		if result.Content != nil {
			passage.Content = aws.ToString(result.Content.Text)
		}
		if result.Location != nil && result.Location.S3Location != nil {
			passage.Source = aws.ToString(result.Location.S3Location.Uri)
		}
		if passage.Content == "" {
			continue
		}
		passages = append(passages, passage)
	}
	return passages, nil
}
