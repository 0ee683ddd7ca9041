package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/libralend/libralend-backend/pkg/db/models"
	"github.com/libralend/libralend-backend/pkg/enums"
	"github.com/libralend/libralend-backend/pkg/logger"
	"github.com/libralend/libralend-backend/pkg/outbox"
	"github.com/libralend/libralend-backend/pkg/outbox/idempotency"
	"github.com/libralend/libralend-backend/pkg/outbox/payloads"
	"github.com/libralend/libralend-backend/pkg/outbox/registry"
)

const borrowerAlertConsumer = "borrower-alerts"

type repository interface {
	Create(ctx context.Context, tx *gorm.DB, alert *models.Alert) error
}

// Consumer materializes borrower alerts from domain events. Penalty
// assessments happen in a batch job and unavailable-book drops happen after
// the request row is deleted, so neither writes its alert inline.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// alertDecoders registers the payload versions this consumer understands.
func alertDecoders() *registry.DecoderRegistry {
	reg := registry.NewDecoderRegistry()
	reg.Register(enums.EventPenaltyAssessed, 1, func(data json.RawMessage) (interface{}, error) {
		var payload payloads.PenaltyAssessedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("parse penalty payload: %w", err)
		}
		return &payload, nil
	})
	reg.Register(enums.EventAlertRequested, 1, func(data json.RawMessage) (interface{}, error) {
		var payload payloads.AlertRequestedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("parse alert payload: %w", err)
		}
		return &payload, nil
	})
	return reg
}

// NewConsumer builds a borrower alert consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("alerts repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		decoders:     alertDecoders(),
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	if eventType != string(enums.EventPenaltyAssessed) && eventType != string(enums.EventAlertRequested) {
		c.logg.Info(logCtx, "skipping unhandled event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, borrowerAlertConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handleEvent(ctx, eventType, envelope, logCtx); err != nil {
		c.logg.Error(logCtx, "alert handling failed", err)
		_ = c.idempotency.Delete(ctx, borrowerAlertConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handleEvent(ctx context.Context, eventType string, envelope outbox.PayloadEnvelope, logCtx context.Context) error {
	decoded, err := c.decoders.Decode(enums.OutboxEventType(eventType), envelope.Version, envelope.Data)
	if err != nil {
		return err
	}
	switch payload := decoded.(type) {
	case *payloads.PenaltyAssessedEvent:
		return c.createPenaltyAlert(ctx, payload, logCtx)
	case *payloads.AlertRequestedEvent:
		return c.createRequestedAlert(ctx, payload, logCtx)
	default:
		return nil
	}
}

func (c *Consumer) createPenaltyAlert(ctx context.Context, payload *payloads.PenaltyAssessedEvent, logCtx context.Context) error {
	if payload.UserID == uuid.Nil {
		return fmt.Errorf("user id missing")
	}

	bookID := payload.BookID
	alert := &models.Alert{
		UserID: payload.UserID,
		BookID: &bookID,
		Type:   enums.AlertTypePenaltyAssessed,
		Message: fmt.Sprintf("Your loan is %d day(s) overdue. A fine of %s %s has been assessed.",
			payload.DaysOverdue, payload.Amount.StringFixed(2), payload.Currency),
	}
	if err := c.repo.Create(ctx, nil, alert); err != nil {
		return err
	}
	c.logg.Info(logCtx, "borrower alerted of assessed penalty")
	return nil
}

func (c *Consumer) createRequestedAlert(ctx context.Context, payload *payloads.AlertRequestedEvent, logCtx context.Context) error {
	if payload.UserID == uuid.Nil {
		return fmt.Errorf("user id missing")
	}
	if !payload.Type.IsValid() {
		return fmt.Errorf("invalid alert type %q", payload.Type)
	}
	if payload.Message == "" {
		return fmt.Errorf("alert message missing")
	}

	alert := &models.Alert{
		UserID:  payload.UserID,
		BookID:  payload.BookID,
		Type:    payload.Type,
		Message: payload.Message,
	}
	if err := c.repo.Create(ctx, nil, alert); err != nil {
		return err
	}
	c.logg.Info(logCtx, "borrower alert materialized")
	return nil
}
