package secrets

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/cockroachdb/errors"
)

// API is the subset of the Secrets Manager client used here
type API interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Vault reads JSON secrets
type Vault struct {
	api API
}

// NewVault returns a Vault
func NewVault(api API) *Vault {
	return &Vault{api: api}
}

// NewFromConfig builds a Vault on a Secrets Manager client from cfg
func NewFromConfig(cfg aws.Config) *Vault {
	return NewVault(secretsmanager.NewFromConfig(cfg))
}

// GetJSON reads the secret's string value and unmarshals it into v
func (s *Vault) GetJSON(ctx context.Context, secretID string, v interface{}) error {
	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to get secret %s", secretID)
	}
	if out.SecretString == nil {
		return errors.Newf("secret %s has no string value", secretID)
	}
	if err := json.Unmarshal([]byte(*out.SecretString), v); err != nil {
		return errors.Wrapf(err, "failed to decode secret %s", secretID)
	}
	return nil
}
