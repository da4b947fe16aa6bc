// Package notification forwards payment status events to an SQS queue for
// downstream consumers such as the confirmation mailer.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/frahmantamala/conference-payments/internal"
	"github.com/frahmantamala/conference-payments/internal/core/events"
)

// SQSAPI is the subset of the SQS client the forwarder uses.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// NewSQSClient uses static credentials when both keys are set and the
// default AWS credential chain otherwise.
func NewSQSClient(ctx context.Context, cfg internal.SQSConfig) (*sqs.Client, error) {
	opts := []func(*awsConfig.LoadOptions) error{awsConfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return sqs.NewFromConfig(awsCfg), nil
}

type message struct {
	EventID         string `json:"eventId"`
	EventType       string `json:"eventType"`
	OccurredAt      string `json:"occurredAt"`
	Vertical        string `json:"vertical"`
	Class           string `json:"class"`
	SessionID       string `json:"sessionId"`
	PaymentIntentID string `json:"paymentIntentId,omitempty"`
	PreviousStatus  string `json:"previousStatus"`
	Status          string `json:"status"`
	AmountTotal     string `json:"amountTotal"`
	Currency        string `json:"currency"`
	CustomerEmail   string `json:"customerEmail"`
}

// Forwarder publishes payment status events to a queue.
type Forwarder struct {
	client   SQSAPI
	queueURL string
	logger   *slog.Logger
}

func NewForwarder(client SQSAPI, queueURL string, logger *slog.Logger) *Forwarder {
	return &Forwarder{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

func (f *Forwarder) HandlePaymentStatusChanged(ctx context.Context, event events.Event) error {
	changed, ok := event.(*events.PaymentStatusChangedEvent)
	if !ok {
		return fmt.Errorf("expected PaymentStatusChangedEvent, got %T", event)
	}

	body, err := json.Marshal(message{
		EventID:         changed.EventID(),
		EventType:       changed.EventType(),
		OccurredAt:      changed.OccurredAt().Format("2006-01-02T15:04:05.000Z07:00"),
		Vertical:        changed.Vertical,
		Class:           changed.Class,
		SessionID:       changed.SessionID,
		PaymentIntentID: changed.PaymentIntentID,
		PreviousStatus:  changed.PreviousStatus,
		Status:          changed.Status,
		AmountTotal:     changed.AmountTotal,
		Currency:        changed.Currency,
		CustomerEmail:   changed.CustomerEmail,
	})
	if err != nil {
		return fmt.Errorf("encode payment event: %w", err)
	}

	out, err := f.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(f.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"eventType": {DataType: aws.String("String"), StringValue: aws.String(changed.EventType())},
			"vertical":  {DataType: aws.String("String"), StringValue: aws.String(changed.Vertical)},
		},
	})
	if err != nil {
		return fmt.Errorf("send payment event %s: %w", changed.EventID(), err)
	}

	f.logger.Info("payment event forwarded",
		"event_id", changed.EventID(),
		"event_type", changed.EventType(),
		"session_id", changed.SessionID,
		"message_id", aws.ToString(out.MessageId))
	return nil
}

func (f *Forwarder) RegisterEventHandlers(eventBus *events.EventBus) {
	for _, t := range events.PaymentEventTypes {
		eventBus.Subscribe(t, f.HandlePaymentStatusChanged)
	}
}
