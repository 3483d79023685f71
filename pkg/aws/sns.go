package aws

import (
	"context"
	"errors"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

var errNoTopic = errors.New("sns: empty topic arn")

// SNSPublisher publishes a message body with string attributes subscribers can filter on.
// It returns the SNS message id.
type SNSPublisher interface {
	Publish(ctx context.Context, topicArn string, body []byte, attributes map[string]string) (string, error)
}

// SNSAPI is the slice of the SNS API the client uses.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSClient struct {
	client SNSAPI
}

func NewSNSClient(cfg sdkaws.Config) *SNSClient {
	return &SNSClient{client: sns.NewFromConfig(cfg)}
}

func NewSNSClientWith(api SNSAPI) *SNSClient {
	return &SNSClient{client: api}
}

func (s *SNSClient) Publish(ctx context.Context, topicArn string, body []byte, attributes map[string]string) (string, error) {
	if topicArn == "" {
		return "", errNoTopic
	}
	out, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn:          sdkaws.String(topicArn),
		Message:           sdkaws.String(string(body)),
		MessageAttributes: messageAttributes(attributes),
	})
	if err != nil {
		return "", fmt.Errorf("sns publish to %s: %w", topicArn, err)
	}
	return sdkaws.ToString(out.MessageId), nil
}

func messageAttributes(attributes map[string]string) map[string]types.MessageAttributeValue {
	if len(attributes) == 0 {
		return nil
	}
	out := make(map[string]types.MessageAttributeValue, len(attributes))
	for k, v := range attributes {
		// SNS rejects attributes with empty values.
		if v == "" {
			continue
		}
		out[k] = types.MessageAttributeValue{
			DataType:    sdkaws.String("String"),
			StringValue: sdkaws.String(v),
		}
	}
	return out
}
