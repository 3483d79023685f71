package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsAPI is the slice of the Secrets Manager API the client uses.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsClient resolves secret references of the form "name" or "name#key".
// With a key the secret string must be a JSON object and the key's value is returned.
// Secret strings are fetched once per name.
type SecretsClient struct {
	client SecretsAPI

	mu      sync.Mutex
	fetched map[string]string
}

func NewSecretsClient(cfg sdkaws.Config) *SecretsClient {
	return NewSecretsClientWith(secretsmanager.NewFromConfig(cfg))
}

func NewSecretsClientWith(api SecretsAPI) *SecretsClient {
	return &SecretsClient{client: api, fetched: make(map[string]string)}
}

func (s *SecretsClient) GetSecret(ctx context.Context, ref string) (string, error) {
	name, key, hasKey := strings.Cut(ref, "#")

	raw, err := s.secretString(ctx, name)
	if err != nil {
		return "", err
	}
	if !hasKey {
		return raw, nil
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return "", fmt.Errorf("secret %s is not a JSON object: %w", name, err)
	}
	v, ok := fields[key]
	if !ok || v == "" {
		return "", fmt.Errorf("secret %s has no key %q", name, key)
	}
	return v, nil
}

func (s *SecretsClient) secretString(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.fetched[name]; ok {
		return v, nil
	}
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: sdkaws.String(name)})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", name)
	}
	s.fetched[name] = *out.SecretString
	return *out.SecretString, nil
}
