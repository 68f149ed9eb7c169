package dynamo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamotypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type item = map[string]dynamotypes.AttributeValue

// fakeAPI keeps keyed items for Get/Put/Update and serves Scan and Query from
// preloaded pages, linking them through a synthetic LastEvaluatedKey.
type fakeAPI struct {
	items map[string]item
	pages [][]item

	putErr  error
	scanErr error

	puts    []*dynamodb.PutItemInput
	updates []*dynamodb.UpdateItemInput
	scans   []*dynamodb.ScanInput
	queries []*dynamodb.QueryInput
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{items: map[string]item{}}
}

func pkOf(it item) string {
	if v, ok := it["pk"].(*dynamotypes.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func conditionalFailure(op string) error {
	return fmt.Errorf("operation error DynamoDB: %s, %w", op, &dynamotypes.ConditionalCheckFailedException{
		Message: aws.String("The conditional request failed"),
	})
}

func (f *fakeAPI) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.items[pkOf(in.Key)]}, nil
}

func (f *fakeAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	if f.putErr != nil {
		return nil, f.putErr
	}
	pk := pkOf(in.Item)
	if in.ConditionExpression != nil && *in.ConditionExpression == "attribute_not_exists(pk)" {
		if _, exists := f.items[pk]; exists {
			return nil, conditionalFailure("PutItem")
		}
	}
	f.items[pk] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	existing, ok := f.items[pkOf(in.Key)]
	if !ok {
		return nil, conditionalFailure("UpdateItem")
	}
	if status, _ := existing["status"].(*dynamotypes.AttributeValueMemberS); status == nil || status.Value != "queued" {
		return nil, conditionalFailure("UpdateItem")
	}
	existing["status"] = &dynamotypes.AttributeValueMemberS{Value: "started"}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeAPI) page(start item) ([]item, item) {
	idx := 0
	if start != nil {
		n, _ := strconv.Atoi(start["page"].(*dynamotypes.AttributeValueMemberN).Value)
		idx = n
	}
	if idx >= len(f.pages) {
		return nil, nil
	}
	var next item
	if idx+1 < len(f.pages) {
		next = item{"page": &dynamotypes.AttributeValueMemberN{Value: strconv.Itoa(idx + 1)}}
	}
	return f.pages[idx], next
}

func (f *fakeAPI) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scans = append(f.scans, in)
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	items, next := f.page(in.ExclusiveStartKey)
	return &dynamodb.ScanOutput{Items: items, LastEvaluatedKey: next}, nil
}

func (f *fakeAPI) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queries = append(f.queries, in)
	items, next := f.page(in.ExclusiveStartKey)
	return &dynamodb.QueryOutput{Items: items, LastEvaluatedKey: next}, nil
}
