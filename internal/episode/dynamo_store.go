package episode

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

	"github.com/book-expert/lingocast/internal/core"
)

type dynamoEpisodeItem struct {
	ID         string   `dynamodbav:"id"`
	Title      string   `dynamodbav:"title"`
	Topic      string   `dynamodbav:"topic"`
	Words      []string `dynamodbav:"words"`
	Transcript string   `dynamodbav:"transcript"`
	Structured bool     `dynamodbav:"structured"`
	AudioURL   string   `dynamodbav:"audio_url"`
}

// DynamoStore puts episodes into a DynamoDB table whose partition key is id.
// PutItem replaces an existing item with the same key.
type DynamoStore struct {
	dynamoSvc dynamodbiface.DynamoDBAPI
	table     string
}

// NewDynamoStore creates a store for one table.
func NewDynamoStore(dynamoSvc dynamodbiface.DynamoDBAPI, table string) *DynamoStore {
	return &DynamoStore{
		dynamoSvc: dynamoSvc,
		table:     table,
	}
}

// Upsert writes the record, replacing any item with the same id.
func (d *DynamoStore) Upsert(ctx context.Context, record core.EpisodeRecord) error {
	item := dynamoEpisodeItem{
		ID:         record.ID,
		Title:      record.Title,
		Topic:      record.Topic,
		Words:      record.Words,
		Transcript: record.Transcript.String(),
		Structured: record.Transcript.IsStructured(),
		AudioURL:   record.AudioURL,
	}

	av, err := dynamodbattribute.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal episode %q: %w", record.ID, err)
	}

	_, err = d.dynamoSvc.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		Item:      av,
		TableName: aws.String(d.table),
	})
	if err != nil {
		var requestErr awserr.RequestFailure
		if errors.As(err, &requestErr) {
			return &core.RemoteError{
				Kind:       core.ErrPersistenceFailed,
				StatusCode: requestErr.StatusCode(),
				Body:       requestErr.Code() + ": " + requestErr.Message(),
			}
		}

		return fmt.Errorf("%w: failed to put episode %q: %w", core.ErrPersistenceFailed, record.ID, err)
	}

	return nil
}
