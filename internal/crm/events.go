package crm

import (
	"encoding/json"
	"time"
)

const (
	EventCustomerCreated   = "CustomerCreated"
	EventProductCreated    = "ProductCreated"
	EventOrderCreated      = "OrderCreated"
	EventProductsRestocked = "ProductsRestocked"
	EventCustomersPurged   = "CustomersPurged"
	EventJobTriggered      = "JobTriggered"
)

const (
	TopicCustomerCreated   = "crm.customer.created"
	TopicProductCreated    = "crm.product.created"
	TopicOrderCreated      = "crm.order.created"
	TopicProductsRestocked = "crm.product.restocked"
	TopicCustomersPurged   = "crm.customer.purged"
	TopicJobTriggered      = "crm.job.trigger"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventPublisher delivers envelopes on a best-effort basis. A failed
// publish is the publisher's problem to log; it never fails the mutation
// that produced the event.
type EventPublisher interface {
	PublishEvent(topic string, ev Envelope)
}

type CustomerCreatedPayload struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
}

type ProductCreatedPayload struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Stock      int    `json:"stock"`
}

type OrderCreatedPayload struct {
	OrderID    string    `json:"order_id"`
	CustomerID string    `json:"customer_id"`
	ProductIDs []string  `json:"product_ids"`
	TotalCents int64     `json:"total_cents"`
	OrderDate  time.Time `json:"order_date"`
}

type ProductsRestockedPayload struct {
	ProductIDs []string `json:"product_ids"`
	Threshold  int      `json:"threshold"`
	Amount     int      `json:"amount"`
}

type CustomersPurgedPayload struct {
	Deleted int       `json:"deleted"`
	Cutoff  time.Time `json:"cutoff"`
}

type JobTriggeredPayload struct {
	Job         string    `json:"job"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// PartitionKey keeps every event of one aggregate on one partition.
func PartitionKey(id string) []byte { return []byte(id) }
