package domain

// DeadLetter represents an event record whose processing failed permanently
type DeadLetter struct {
	ID          string    `json:"id"`
	EventType   EventType `json:"event_type"`
	UserID      string    `json:"user_id,omitempty"`
	RecordID    string    `json:"record_id,omitempty"`
	Payload     []byte    `json:"payload"`
	Error       string    `json:"error_msg"`
	ErrorKind   string    `json:"error_kind"`
	RetryCount  int       `json:"retry_count"`

	Status      DeadLetterStatus `json:"status"`
	LastAttempt uint64           `json:"last_attempt"`
	CreatedAt   uint64           `json:"created_at"`
}

type DeadLetterStatus string

const (
	DeadLetterStatusPending  DeadLetterStatus = "pending"
	DeadLetterStatusResolved DeadLetterStatus = "resolved"
	DeadLetterStatusIgnored  DeadLetterStatus = "ignored"
)
