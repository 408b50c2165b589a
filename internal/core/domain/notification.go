package domain

import "time"

// NotificationRecord is an append-only history entry for a delivered alert
type NotificationRecord struct {
	NotificationID string             `json:"notification_id" db:"notification_id"`
	UserID         string             `json:"user_id"         db:"user_id"`
	BudgetID       string             `json:"budget_id"       db:"budget_id"`
	Category       string             `json:"category"        db:"category"`
	ThresholdType  ThresholdType      `json:"threshold_type"  db:"threshold_type"`
	Spending       float64            `json:"spending"        db:"spending"`
	Limit          float64            `json:"limit"           db:"limit_amount"`
	Title          string             `json:"title"           db:"title"`
	Message        string             `json:"message"         db:"message"`
	Channel        string             `json:"channel"         db:"channel"`
	SentAt         time.Time          `json:"sent_at"         db:"sent_at"`
	Status         NotificationStatus `json:"status"          db:"status"`
}

type NotificationStatus string

const (
	NotificationStatusSent   NotificationStatus = "sent"
	NotificationStatusFailed NotificationStatus = "failed"
)
