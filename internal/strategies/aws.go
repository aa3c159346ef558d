package strategies

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/systmms/arkit/internal/config"
	"github.com/systmms/arkit/pkg/strategy"
)

// Strategy ids of the AWS secret stores.
const (
	AWSSecretsID   = "aws-secrets"
	AWSParameterID = "aws-ssm"
)

// SecretsManagerAPI is the part of the Secrets Manager client the strategy
// uses. It allows mocking in tests.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error)
}

// ParameterStoreAPI is the part of the SSM client the strategy uses.
type ParameterStoreAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

var (
	awsSecretsMetadata = strategy.Metadata{
		ID:          AWSSecretsID,
		Name:        "AWS Secrets Manager",
		Description: "Arweave wallet key stored as an AWS secret",
		Theme:       "255, 153, 0",
		URL:         "https://docs.aws.amazon.com/secretsmanager/latest/userguide/create_secret.html",
		Logo:        "https://aws.amazon.com/favicon.ico",
	}
	awsParameterMetadata = strategy.Metadata{
		ID:          AWSParameterID,
		Name:        "AWS Parameter Store",
		Description: "Arweave wallet key in an SSM SecureString parameter",
		Theme:       "255, 153, 0",
		URL:         "https://docs.aws.amazon.com/systems-manager/latest/userguide/systems-manager-parameter-store.html",
		Logo:        "https://aws.amazon.com/favicon.ico",
	}
)

// NewAWSSecrets creates the Secrets Manager strategy. The AWS client is
// built from the default credential chain on first use.
func NewAWSSecrets(cfg config.AWSSecretsConfig) *SecretStore {
	return NewSecretStore(awsSecretsMetadata, cfg.SecretID, func(ctx context.Context) (SecretSource, error) {
		awsCfg, err := loadAWSConfig(ctx, cfg.Region, cfg.Profile)
		if err != nil {
			return nil, err
		}
		client := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		})
		return &awsSecretSource{client: client, secretID: cfg.SecretID}, nil
	})
}

// NewAWSSecretsWithClient creates the Secrets Manager strategy with a
// custom client.
func NewAWSSecretsWithClient(secretID string, client SecretsManagerAPI) *SecretStore {
	return NewSecretStore(awsSecretsMetadata, secretID, func(context.Context) (SecretSource, error) {
		return &awsSecretSource{client: client, secretID: secretID}, nil
	})
}

// NewAWSParameter creates the Parameter Store strategy.
func NewAWSParameter(cfg config.AWSParameterConfig) *SecretStore {
	return NewSecretStore(awsParameterMetadata, cfg.Name, func(ctx context.Context) (SecretSource, error) {
		awsCfg, err := loadAWSConfig(ctx, cfg.Region, cfg.Profile)
		if err != nil {
			return nil, err
		}
		client := ssm.NewFromConfig(awsCfg, func(o *ssm.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		})
		return &awsParameterSource{client: client, name: cfg.Name}, nil
	})
}

// NewAWSParameterWithClient creates the Parameter Store strategy with a
// custom client.
func NewAWSParameterWithClient(name string, client ParameterStoreAPI) *SecretStore {
	return NewSecretStore(awsParameterMetadata, name, func(context.Context) (SecretSource, error) {
		return &awsParameterSource{client: client, name: name}, nil
	})
}

func loadAWSConfig(ctx context.Context, region, profile string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

type awsSecretSource struct {
	client   SecretsManagerAPI
	secretID string
}

func (s *awsSecretSource) Exists(ctx context.Context) (bool, error) {
	_, err := s.client.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{SecretId: aws.String(s.secretID)})
	if isAWSNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to describe secret %s: %w", s.secretID, err)
	}
	return true, nil
}

func (s *awsSecretSource) Fetch(ctx context.Context) ([]byte, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(s.secretID)})
	if isAWSNotFound(err) {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, s.secretID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read secret %s: %w", s.secretID, err)
	}

	switch {
	case out.SecretString != nil:
		return []byte(*out.SecretString), nil
	case out.SecretBinary != nil:
		return out.SecretBinary, nil
	}
	return nil, fmt.Errorf("secret %s has no value", s.secretID)
}

type awsParameterSource struct {
	client ParameterStoreAPI
	name   string
}

func (s *awsParameterSource) get(ctx context.Context, decrypt bool) (*ssm.GetParameterOutput, error) {
	return s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(s.name),
		WithDecryption: aws.Bool(decrypt),
	})
}

func (s *awsParameterSource) Exists(ctx context.Context) (bool, error) {
	_, err := s.get(ctx, false)
	if isAWSNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read parameter %s: %w", s.name, err)
	}
	return true, nil
}

func (s *awsParameterSource) Fetch(ctx context.Context) ([]byte, error) {
	out, err := s.get(ctx, true)
	if isAWSNotFound(err) {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, s.name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter %s: %w", s.name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return nil, fmt.Errorf("parameter %s has no value", s.name)
	}
	return []byte(*out.Parameter.Value), nil
}

func isAWSNotFound(err error) bool {
	if err == nil {
		return false
	}
	var secretNotFound *smtypes.ResourceNotFoundException
	var parameterNotFound *ssmtypes.ParameterNotFound
	return errors.As(err, &secretNotFound) || errors.As(err, &parameterNotFound)
}
