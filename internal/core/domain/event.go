package domain

import (
	"encoding/json"
	"time"
)

// EventType identifies the detail-type of a bus event
type EventType string

const (
	EventTypeTransactionCreated EventType = "transaction.created"
	EventTypeTransactionUpdated EventType = "transaction.updated"
	EventTypeTransactionDeleted EventType = "transaction.deleted"
	EventTypeThresholdReached   EventType = "budget.threshold_reached"
	EventTypeNotificationSent   EventType = "notification.sent"
)

// Envelope is the single wire shape every consumer sees. Inbound records
// are normalized into it once at ingress regardless of which of the two
// historical shapes (wrapped detail vs bare payload) they arrived in.
type Envelope struct {
	Source     string          `json:"source"`
	DetailType EventType       `json:"detail_type"`
	Detail     json.RawMessage `json:"detail"`
	BusName    string          `json:"bus_name,omitempty"`
}

// TransactionEvent is the detail payload of transaction.created and the
// per-side states of transaction.updated/deleted
type TransactionEvent struct {
	UserID        string          `json:"userId"`
	TransactionID string          `json:"transactionId"`
	Amount        float64         `json:"amount"`
	Category      string          `json:"category"`
	Type          TransactionType `json:"type"`
	Description   string          `json:"description,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// TransactionUpdatedEvent carries the before/after pair of a mutation
type TransactionUpdatedEvent struct {
	UserID        string            `json:"userId"`
	TransactionID string            `json:"transactionId"`
	BeforeState   *TransactionEvent `json:"beforeState"`
	AfterState    *TransactionEvent `json:"afterState"`
	Changes       []string          `json:"changes"`
	UpdatedBy     string            `json:"updatedBy"`
	Timestamp     time.Time         `json:"timestamp"`
}

// TransactionDeletedEvent carries the removed transaction
type TransactionDeletedEvent struct {
	UserID             string            `json:"userId"`
	TransactionID      string            `json:"transactionId"`
	DeletedTransaction *TransactionEvent `json:"deletedTransaction"`
	DeletedBy          string            `json:"deletedBy"`
	Timestamp          time.Time         `json:"timestamp"`
}

// ThresholdReachedEvent is the budget.threshold_reached detail payload
type ThresholdReachedEvent struct {
	UserID          string        `json:"userId"`
	BudgetID        string        `json:"budgetId"`
	Category        string        `json:"category"`
	CurrentSpending float64       `json:"currentSpending"`
	Limit           float64       `json:"limit"`
	PercentageUsed  float64       `json:"percentageUsed"`
	ThresholdType   ThresholdType `json:"thresholdType"`
	Timestamp       time.Time     `json:"timestamp"`
}

// NotificationSentEvent is the notification.sent audit payload
type NotificationSentEvent struct {
	UserID           string        `json:"userId"`
	BudgetID         string        `json:"budgetId"`
	Category         string        `json:"category"`
	NotificationType string        `json:"notificationType"`
	ThresholdType    ThresholdType `json:"thresholdType"`
	Channel          string        `json:"channel"`
	NotificationID   string        `json:"notificationId"`
	Timestamp        time.Time     `json:"timestamp"`
}
