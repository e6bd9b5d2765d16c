// Package notify delivers signup confirmations through AWS SES and SNS.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mergington-activities/internal/activities"
	"mergington-activities/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SESService is the slice of the SES client used here.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SNSService is the slice of the SNS client used here.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// EventType is set as the "eventType" message attribute on SNS publishes.
const EventType = "activity.signup.confirmed"

// SESNotifier emails the student a confirmation.
type SESNotifier struct {
	client  SESService
	from    string
	timeout time.Duration
	logger  logger.Logger
}

func NewSESNotifier(client SESService, from string, timeout time.Duration, log logger.Logger) *SESNotifier {
	return &SESNotifier{
		client:  client,
		from:    from,
		timeout: timeout,
		logger:  log.WithFields(map[string]interface{}{"notifier": "ses"}),
	}
}

func (n *SESNotifier) SignupConfirmed(ctx context.Context, event activities.SignupEvent) error {
	ctx, cancel := withTimeout(ctx, n.timeout)
	defer cancel()

	subject := fmt.Sprintf("You're signed up for %s", event.Activity)
	body := fmt.Sprintf(
		"Hello,\n\nYou are now on the roster for %s at Mergington High School.\n\nReference: %s\n",
		event.Activity, event.ID,
	)

	out, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{event.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.from),
	})
	if err != nil {
		return fmt.Errorf("ses send email: %w", err)
	}

	n.logger.Debug("confirmation email sent", map[string]interface{}{
		"eventId":   event.ID,
		"messageId": aws.ToString(out.MessageId),
	})
	return nil
}

// SNSNotifier publishes the signup event as JSON to a topic.
type SNSNotifier struct {
	client   SNSService
	topicARN string
	timeout  time.Duration
	logger   logger.Logger
}

func NewSNSNotifier(client SNSService, topicARN string, timeout time.Duration, log logger.Logger) *SNSNotifier {
	return &SNSNotifier{
		client:   client,
		topicARN: topicARN,
		timeout:  timeout,
		logger:   log.WithFields(map[string]interface{}{"notifier": "sns"}),
	}
}

func (n *SNSNotifier) SignupConfirmed(ctx context.Context, event activities.SignupEvent) error {
	ctx, cancel := withTimeout(ctx, n.timeout)
	defer cancel()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal signup event: %w", err)
	}

	out, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"eventType": {DataType: aws.String("String"), StringValue: aws.String(EventType)},
			"activity":  {DataType: aws.String("String"), StringValue: aws.String(event.Activity)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}

	n.logger.Debug("signup event published", map[string]interface{}{
		"eventId":   event.ID,
		"messageId": aws.ToString(out.MessageId),
	})
	return nil
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []activities.Notifier

func (m Multi) SignupConfirmed(ctx context.Context, event activities.SignupEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.SignupConfirmed(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) SignupConfirmed(context.Context, activities.SignupEvent) error { return nil }

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
