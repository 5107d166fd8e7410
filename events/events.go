// Package events publishes order and stock domain events after the owning
// transaction has committed.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	TopicOrderPlaced        = "canteen.order.placed"
	TopicOrderCancelled     = "canteen.order.cancelled"
	TopicOrderStatusChanged = "canteen.order.status_changed"
	TopicInventoryLowStock  = "canteen.inventory.low_stock"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderCancelled     = "OrderCancelled"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventInventoryLowStock  = "InventoryLowStock"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id or menu item id
	Payload       json.RawMessage `json:"payload"`
}

type LineQty struct {
	MenuItemID uint `json:"menu_item_id"`
	Qty        int  `json:"qty"`
}

type OrderPlacedPayload struct {
	OrderID uint      `json:"order_id"`
	UserID  uint      `json:"user_id"`
	Items   []LineQty `json:"items"`
	Total   string    `json:"total"`
}

type OrderStatusPayload struct {
	OrderID   uint   `json:"order_id"`
	UserID    uint   `json:"user_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	ChangedBy uint   `json:"changed_by"`
	Restocked bool   `json:"restocked,omitempty"`
}

type LowStockPayload struct {
	MenuItemID uint `json:"menu_item_id"`
	Quantity   int  `json:"quantity"`
	Threshold  int  `json:"threshold"`
}

// Publisher delivers an envelope to a topic, keyed for partition ordering.
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, ev Envelope) error
	Close() error
}

// NewEnvelope builds a v1 envelope around payload.
func NewEnvelope(eventType, producer, correlationID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// Noop drops every event; used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, string, Envelope) error { return nil }
func (Noop) Close() error                                           { return nil }
