package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/cockroachdb/errors"

	"github.com/vignesh-goutham/artemis-capture/pkg/logger"
)

// API is the subset of the DynamoDB client the stores use
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

var (
	client *dynamodb.Client

	// ErrAlreadyQueued is returned when a queue entry for the event exists
	ErrAlreadyQueued = errors.New("queue entry already exists")
	// ErrNotQueued is returned when a started transition finds the entry no longer queued
	ErrNotQueued = errors.New("queue entry is not queued")
	// ErrNotFound is returned when a keyed item does not exist
	ErrNotFound = errors.New("item not found")
)

// Initialize sets up the DynamoDB client
func Initialize(cfg aws.Config) {
	client = dynamodb.NewFromConfig(cfg)
}

// GetClient returns the DynamoDB client instance
func GetClient() *dynamodb.Client {
	if client == nil {
		logger.Logger.Fatal("DynamoDB client not initialized")
	}
	return client
}

// Store reads and writes the capture state table. Queue entries, the worker
// liveness row and dashboard settings share the table, separated by key prefix.
type Store struct {
	api   API
	table string
}

// NewStore returns a Store over the given table
func NewStore(api API, table string) *Store {
	return &Store{api: api, table: table}
}

// Table returns the table name the store writes to
func (s *Store) Table() string {
	return s.table
}
