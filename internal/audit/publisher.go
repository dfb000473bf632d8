package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v4"
	"github.com/loopcrm/billing/internal/config"
	"github.com/loopcrm/billing/internal/logger"
	"github.com/loopcrm/billing/internal/pubsub"
	"github.com/loopcrm/billing/internal/types"
)

// Publisher emits structured audit events for every state-mutating operation.
// Emission is fire-and-forget: failures are logged and never block or roll
// back the primary operation.
type Publisher interface {
	Publish(ctx context.Context, event *types.AuditEvent)
	Close() error
}

type auditPublisher struct {
	pubSub pubsub.PubSub
	topic  string
	logger *logger.Logger
}

// NewPublisher creates an audit publisher on top of the configured pubsub
func NewPublisher(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	logger *logger.Logger,
) Publisher {
	return &auditPublisher{
		pubSub: pubSub,
		topic:  cfg.Audit.Topic,
		logger: logger,
	}
}

func (p *auditPublisher) Publish(ctx context.Context, event *types.AuditEvent) {
	if event == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Errorw("failed to marshal audit event",
			"event_id", event.ID,
			"action", event.Action,
			"error", err)
		return
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("tenant_id", event.TenantID)
	msg.Metadata.Set("action", event.Action)

	// Retry transient publish failures briefly; give up without failing the caller.
	bo := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(backoff.WithInitialInterval(50*time.Millisecond)), 3,
	), ctx)

	err = backoff.Retry(func() error {
		return p.pubSub.Publish(ctx, p.topic, msg)
	}, bo)
	if err != nil {
		p.logger.Errorw("failed to publish audit event",
			"event_id", event.ID,
			"action", event.Action,
			"resource_type", event.ResourceType,
			"resource_id", event.ResourceID,
			"error", err)
		return
	}

	p.logger.Debugw("published audit event",
		"event_id", event.ID,
		"action", event.Action,
		"resource_id", event.ResourceID,
		"status", event.Status)
}

func (p *auditPublisher) Close() error {
	return p.pubSub.Close()
}
