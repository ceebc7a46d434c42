package messaging

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/events/config"
	"example.com/backstage/services/events/internal/apperrors"
	"example.com/backstage/services/events/internal/metrics"
)

const receiveBackoff = 2 * time.Second

// receiver is the subset of *azservicebus.Receiver the consumer uses
type receiver interface {
	ReceiveMessages(ctx context.Context, maxMessages int, options *azservicebus.ReceiveMessagesOptions) ([]*azservicebus.ReceivedMessage, error)
	CompleteMessage(ctx context.Context, message *azservicebus.ReceivedMessage, options *azservicebus.CompleteMessageOptions) error
	AbandonMessage(ctx context.Context, message *azservicebus.ReceivedMessage, options *azservicebus.AbandonMessageOptions) error
	DeadLetterMessage(ctx context.Context, message *azservicebus.ReceivedMessage, options *azservicebus.DeadLetterOptions) error
	Close(ctx context.Context) error
}

// Consumer receives event submissions from an Azure Service Bus queue
type Consumer struct {
	client        *azservicebus.Client
	receiver      receiver
	processor     *Processor
	metrics       *metrics.Metrics
	queueName     string
	maxMessages   int
	maxDeliveries uint32
}

// NewConsumer creates a new Azure Service Bus consumer
func NewConsumer(cfg config.AzureConfig, processor *Processor, m *metrics.Metrics) (*Consumer, error) {
	if cfg.QueueConnStr == "" {
		return nil, &apperrors.ConfigurationError{Param: "azure.queue_conn_str", Reason: "connection string is not set"}
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	recv, err := client.NewReceiverForQueue(cfg.QueueName, nil)
	if err != nil {
		_ = client.Close(context.Background())
		return nil, errors.Wrap(err, "failed to create Service Bus receiver")
	}

	return newConsumer(client, recv, processor, m, cfg), nil
}

func newConsumer(client *azservicebus.Client, recv receiver, processor *Processor, m *metrics.Metrics, cfg config.AzureConfig) *Consumer {
	maxMessages := cfg.MaxMessages
	if maxMessages <= 0 {
		maxMessages = 1
	}

	return &Consumer{
		client:        client,
		receiver:      recv,
		processor:     processor,
		metrics:       m,
		queueName:     cfg.QueueName,
		maxMessages:   maxMessages,
		maxDeliveries: cfg.MaxDeliveries,
	}
}

// Run receives and settles messages until ctx is cancelled
func (c *Consumer) Run(ctx context.Context) error {
	log.Info().Str("queue", c.queueName).Int("batch", c.maxMessages).Msg("Starting Service Bus consumer")

	for {
		messages, err := c.receiver.ReceiveMessages(ctx, c.maxMessages, nil)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			log.Error().Err(err).Str("queue", c.queueName).Msg("Error receiving messages")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(receiveBackoff):
			}
			continue
		}

		for _, msg := range messages {
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg *azservicebus.ReceivedMessage) {
	outcome, err := c.processor.Process(ctx, msg.Body)

	// a message that keeps failing transiently is parked once it reaches the delivery limit
	if outcome == OutcomeAbandon && c.maxDeliveries > 0 && msg.DeliveryCount >= c.maxDeliveries {
		outcome = OutcomeDeadLetter
	}

	// settlement must not be skipped because the receive context was cancelled
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	logger := log.With().
		Str("message_id", msg.MessageID).
		Uint32("delivery_count", msg.DeliveryCount).
		Str("outcome", outcome.String()).
		Logger()

	var settleErr error
	switch outcome {
	case OutcomeComplete:
		settleErr = c.receiver.CompleteMessage(settleCtx, msg, nil)
		c.metrics.RecordMessage(metrics.MessageCompleted)
		logger.Info().Msg("Event submission processed")
	case OutcomeAbandon:
		settleErr = c.receiver.AbandonMessage(settleCtx, msg, nil)
		c.metrics.RecordMessage(metrics.MessageAbandoned)
		logger.Warn().Err(err).Msg("Event submission failed, returning to queue")
	case OutcomeDeadLetter:
		reason := "ProcessingFailed"
		if apperrors.IsValidation(err) {
			reason = "ValidationFailed"
		}
		description := ""
		if err != nil {
			description = err.Error()
		}
		settleErr = c.receiver.DeadLetterMessage(settleCtx, msg, &azservicebus.DeadLetterOptions{
			Reason:           &reason,
			ErrorDescription: &description,
		})
		c.metrics.RecordMessage(metrics.MessageDeadLettered)
		logger.Error().Err(err).Str("reason", reason).Msg("Event submission dead-lettered")
	}

	if settleErr != nil {
		logger.Error().Err(settleErr).Msg("Failed to settle message")
	}
}

// Close closes the receiver and the client
func (c *Consumer) Close(ctx context.Context) error {
	if c.receiver != nil {
		if err := c.receiver.Close(ctx); err != nil {
			return errors.Wrap(err, "failed to close Service Bus receiver")
		}
	}

	if c.client != nil {
		return errors.Wrap(c.client.Close(ctx), "failed to close Service Bus client")
	}

	return nil
}
