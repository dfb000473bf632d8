package testutil

import (
	"context"
	"sync"

	"github.com/loopcrm/billing/internal/audit"
	"github.com/loopcrm/billing/internal/types"
)

var _ audit.Publisher = (*InMemoryAuditPublisher)(nil)

// InMemoryAuditPublisher captures published audit events so tests can assert
// on them
type InMemoryAuditPublisher struct {
	mu     sync.RWMutex
	events []*types.AuditEvent
}

func NewInMemoryAuditPublisher() *InMemoryAuditPublisher {
	return &InMemoryAuditPublisher{
		events: make([]*types.AuditEvent, 0),
	}
}

func (p *InMemoryAuditPublisher) Publish(ctx context.Context, event *types.AuditEvent) {
	if event == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *InMemoryAuditPublisher) Close() error {
	return nil
}

// Events returns a snapshot of all captured events
func (p *InMemoryAuditPublisher) Events() []*types.AuditEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*types.AuditEvent(nil), p.events...)
}

// EventsByAction returns captured events with the given action
func (p *InMemoryAuditPublisher) EventsByAction(action string) []*types.AuditEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]*types.AuditEvent, 0)
	for _, e := range p.events {
		if e.Action == action {
			result = append(result, e)
		}
	}
	return result
}

func (p *InMemoryAuditPublisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = p.events[:0]
}
