package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/cockroachdb/errors"

	"github.com/vignesh-goutham/artemis-capture/pkg/types"
)

// GetLiveness returns the capture worker's heartbeat row, or nil when the
// worker has never written one.
func (s *Store) GetLiveness(ctx context.Context) (*types.Liveness, error) {
	result, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            keyOf(types.LivenessKey),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get worker liveness")
	}
	if len(result.Item) == 0 {
		return nil, nil
	}

	var rec types.Liveness
	if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal worker liveness")
	}
	return &rec, nil
}

// GetSetting returns a dashboard setting, or ErrNotFound
func (s *Store) GetSetting(ctx context.Context, name string) (*types.Setting, error) {
	result, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       keyOf(types.SettingKey(name)),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get setting %s", name)
	}
	if len(result.Item) == 0 {
		return nil, ErrNotFound
	}

	var setting types.Setting
	if err := attributevalue.UnmarshalMap(result.Item, &setting); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal setting")
	}
	return &setting, nil
}

// PutSetting writes a dashboard setting, replacing any previous value
func (s *Store) PutSetting(ctx context.Context, setting types.Setting) error {
	setting.Key = types.SettingKey(setting.Name)

	item, err := attributevalue.MarshalMap(setting)
	if err != nil {
		return errors.Wrap(err, "failed to marshal setting")
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to put setting %s", setting.Name)
	}
	return nil
}
