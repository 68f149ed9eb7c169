package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/cockroachdb/errors"

	"github.com/vignesh-goutham/artemis-capture/pkg/types"
)

// EventSource reads upcoming events from the events table. The table is
// partitioned by category and sorted by strike time.
type EventSource struct {
	api   API
	table string
}

// NewEventSource returns an EventSource over the given table
func NewEventSource(api API, table string) *EventSource {
	return &EventSource{api: api, table: table}
}

// ListEvents returns every event in category whose strike time lies in
// [from, to], following LastEvaluatedKey until the query is exhausted.
func (e *EventSource) ListEvents(ctx context.Context, category string, from, to int64) ([]types.Event, error) {
	keyCond := expression.Key("category").Equal(expression.Value(category)).
		And(expression.Key("strike_time").Between(expression.Value(from), expression.Value(to)))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build event query")
	}

	paginator := dynamodb.NewQueryPaginator(e.api, &dynamodb.QueryInput{
		TableName:                 aws.String(e.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var events []types.Event
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to query events for %s", category)
		}
		var batch []types.Event
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal events")
		}
		events = append(events, batch...)
	}
	return events, nil
}
