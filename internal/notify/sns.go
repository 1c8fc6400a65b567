package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSAPI is the slice of the SNS client the SMS provider needs.
type SNSAPI interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// SNSProvider sends SMS through AWS SNS direct publish.
type SNSProvider struct {
	client SNSAPI
}

func NewSNSProvider(client SNSAPI) *SNSProvider {
	return &SNSProvider{client: client}
}

func (p *SNSProvider) Name() string { return "sns" }

func (p *SNSProvider) Send(ctx context.Context, msg *Message) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(msg.To),
		Message:     aws.String(msg.Body),
	}
	if _, err := p.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("sns publish to %s: %w", msg.To, err)
	}
	return nil
}
