package order

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/botica-labs/botica/internal/entity"
)

// Event types published to the audit topic.
const (
	EventOrderCreated      = "order.created"
	EventOrderCancelled    = "order.cancelled"
	EventOrderStateChanged = "order.state_changed"
)

// AuditEvent is emitted post-commit for every successful mutation. Summary
// carries the human-readable line the audit trail records verbatim.
type AuditEvent struct {
	Type       string          `json:"type"`
	OrderID    int64           `json:"order_id"`
	Kind       entity.Kind     `json:"kind"`
	State      entity.State    `json:"state"`
	Total      decimal.Decimal `json:"total"`
	UserID     int64           `json:"user_id"`
	Summary    string          `json:"summary"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func createdEvent(o *entity.Order) AuditEvent {
	return AuditEvent{
		Type:       EventOrderCreated,
		OrderID:    o.ID,
		Kind:       o.Kind,
		State:      o.State,
		Total:      o.Total,
		UserID:     o.UserID,
		Summary:    fmt.Sprintf("%s #%d created by operator %d: %d lines, total %s", o.Kind, o.ID, o.UserID, len(o.Lines), o.Total.StringFixed(2)),
		OccurredAt: o.OccurredAt,
	}
}

func cancelledEvent(o *entity.Order) AuditEvent {
	return AuditEvent{
		Type:       EventOrderCancelled,
		OrderID:    o.ID,
		Kind:       o.Kind,
		State:      o.State,
		Total:      o.Total,
		UserID:     o.UserID,
		Summary:    fmt.Sprintf("%s #%d cancelled, %d lines reversed", o.Kind, o.ID, len(o.Lines)),
		OccurredAt: time.Now().UTC(),
	}
}

func stateChangedEvent(o *entity.Order, from, to entity.State) AuditEvent {
	return AuditEvent{
		Type:       EventOrderStateChanged,
		OrderID:    o.ID,
		Kind:       o.Kind,
		State:      to,
		Total:      o.Total,
		UserID:     o.UserID,
		Summary:    fmt.Sprintf("%s #%d moved from %s to %s", o.Kind, o.ID, from, to),
		OccurredAt: time.Now().UTC(),
	}
}
