package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamotypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"

	"github.com/vignesh-goutham/artemis-capture/pkg/types"
)

func keyOf(pk string) map[string]dynamotypes.AttributeValue {
	return map[string]dynamotypes.AttributeValue{
		"pk": &dynamotypes.AttributeValueMemberS{Value: pk},
	}
}

func isConditionalCheckFailed(err error) bool {
	var ccf *dynamotypes.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// PutQueueEntryIfAbsent inserts entry unless an entry with the same key
// exists. The check and the insert are one atomic conditional write, so
// overlapping runs never overwrite each other's provenance.
func (s *Store) PutQueueEntryIfAbsent(ctx context.Context, entry types.QueueEntry) error {
	if entry.EventID == "" {
		return errors.New("queue entry has no event id")
	}
	entry.Key = types.QueueKey(entry.EventID)

	item, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return errors.Wrap(err, "failed to marshal queue entry")
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(pk)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return ErrAlreadyQueued
		}
		return errors.Wrapf(err, "failed to put queue entry %s", entry.EventID)
	}
	return nil
}

// GetQueueEntry returns the queue entry for eventID, or ErrNotFound
func (s *Store) GetQueueEntry(ctx context.Context, eventID string) (*types.QueueEntry, error) {
	result, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            keyOf(types.QueueKey(eventID)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get queue entry %s", eventID)
	}
	if len(result.Item) == 0 {
		return nil, ErrNotFound
	}

	var entry types.QueueEntry
	if err := attributevalue.UnmarshalMap(result.Item, &entry); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal queue entry")
	}
	return &entry, nil
}

// ListQueued returns every queue entry still in the queued state, following
// scan pagination until the table is exhausted.
func (s *Store) ListQueued(ctx context.Context) ([]types.QueueEntry, error) {
	filter := expression.Name("pk").BeginsWith(types.QueueKeyPrefix).
		And(expression.Name("status").Equal(expression.Value(types.StatusQueued)))
	return s.scanQueue(ctx, filter)
}

// ListQueueEntries returns every queue entry regardless of status
func (s *Store) ListQueueEntries(ctx context.Context) ([]types.QueueEntry, error) {
	return s.scanQueue(ctx, expression.Name("pk").BeginsWith(types.QueueKeyPrefix))
}

func (s *Store) scanQueue(ctx context.Context, filter expression.ConditionBuilder) ([]types.QueueEntry, error) {
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build scan filter")
	}

	paginator := dynamodb.NewScanPaginator(s.api, &dynamodb.ScanInput{
		TableName:                 aws.String(s.table),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var entries []types.QueueEntry
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan queue entries")
		}
		var batch []types.QueueEntry
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal queue entries")
		}
		entries = append(entries, batch...)
	}
	return entries, nil
}

// MarkStarted moves a queued entry to started. The update is conditional on
// the entry still being queued so the transition never reverts.
func (s *Store) MarkStarted(ctx context.Context, eventID, startedAt string) error {
	update := expression.Set(expression.Name("status"), expression.Value(types.StatusStarted)).
		Set(expression.Name("started_at"), expression.Value(startedAt))
	cond := expression.Name("status").Equal(expression.Value(types.StatusQueued))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return errors.Wrap(err, "failed to build started update")
	}

	_, err = s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       keyOf(types.QueueKey(eventID)),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return ErrNotQueued
		}
		return errors.Wrapf(err, "failed to mark %s started", eventID)
	}
	return nil
}
