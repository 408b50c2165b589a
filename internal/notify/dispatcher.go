package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vuxmai/budgetwatch/internal/core/domain"
	"github.com/vuxmai/budgetwatch/internal/infra/bus"
	"github.com/vuxmai/budgetwatch/internal/infra/storage"
	"github.com/vuxmai/budgetwatch/internal/metrics"
	"github.com/vuxmai/budgetwatch/internal/reliability/classify"
)

const auditTopic = "notifications"

// Dispatcher routes threshold events to the user's preferred channel,
// appends the delivery to the notification history, and publishes a
// notification.sent audit event. History and audit writes are
// best-effort; only the delivery itself can fail the dispatch.
type Dispatcher struct {
	prefs     storage.PreferenceRepository
	history   storage.NotificationRepository
	publisher bus.Publisher
	channels  map[string]Channel
	fallback  Channel
	log       *slog.Logger
	now       func() time.Time
}

func NewDispatcher(prefs storage.PreferenceRepository, history storage.NotificationRepository, publisher bus.Publisher, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	console := NewConsoleChannel(log)
	return &Dispatcher{
		prefs:     prefs,
		history:   history,
		publisher: publisher,
		channels:  map[string]Channel{console.Name(): console},
		fallback:  console,
		log:       log,
		now:       time.Now,
	}
}

// Register adds a delivery channel. Registering a channel with the
// name of an existing one replaces it.
func (d *Dispatcher) Register(ch Channel) {
	d.channels[ch.Name()] = ch
}

// Dispatch delivers one threshold event. It returns the history record
// on delivery, nil when the user has alerts disabled.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.ThresholdEvent) (*domain.NotificationRecord, error) {
	prefs := d.loadPreferences(ctx, ev.UserID)
	if !prefs.BudgetAlerts {
		d.log.Debug("budget alerts disabled, skipping notification",
			"user_id", ev.UserID, "budget_id", ev.BudgetID)
		return nil, nil
	}

	ch, ok := d.channels[prefs.PreferredChannel]
	if !ok {
		d.log.Warn("preferred channel not registered, using fallback",
			"user_id", ev.UserID, "channel", prefs.PreferredChannel)
		ch = d.fallback
	}

	msg := Render(ev)
	rec := &domain.NotificationRecord{
		NotificationID: uuid.New().String(),
		UserID:         ev.UserID,
		BudgetID:       ev.BudgetID,
		Category:       ev.Category,
		ThresholdType:  ev.ThresholdType,
		Spending:       ev.CurrentSpending,
		Limit:          ev.Limit,
		Title:          msg.Title,
		Message:        msg.Body,
		Channel:        ch.Name(),
		SentAt:         d.now(),
	}

	if err := ch.Deliver(ctx, ev.UserID, msg); err != nil {
		rec.Status = domain.NotificationStatusFailed
		d.appendHistory(ctx, rec)
		metrics.NotificationsSent.WithLabelValues(ch.Name(), string(domain.NotificationStatusFailed)).Inc()
		return nil, classify.Transient(fmt.Errorf("deliver via %s: %w", ch.Name(), err))
	}

	rec.Status = domain.NotificationStatusSent
	d.appendHistory(ctx, rec)
	d.publishAudit(ctx, rec)
	metrics.NotificationsSent.WithLabelValues(ch.Name(), string(domain.NotificationStatusSent)).Inc()
	return rec, nil
}

// loadPreferences never fails the dispatch. A user without saved
// preferences, or an unreachable preference store, gets the defaults.
func (d *Dispatcher) loadPreferences(ctx context.Context, userID string) *domain.UserPreferences {
	prefs, err := d.prefs.GetPreferences(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			d.log.Warn("failed to load preferences, using defaults",
				"user_id", userID, "error", err)
		}
		return domain.DefaultPreferences(userID)
	}
	return prefs
}

func (d *Dispatcher) appendHistory(ctx context.Context, rec *domain.NotificationRecord) {
	if err := d.history.Append(ctx, rec); err != nil {
		d.log.Warn("failed to append notification history",
			"notification_id", rec.NotificationID, "error", err)
	}
}

func (d *Dispatcher) publishAudit(ctx context.Context, rec *domain.NotificationRecord) {
	if d.publisher == nil {
		return
	}
	detail, err := json.Marshal(domain.NotificationSentEvent{
		UserID:           rec.UserID,
		BudgetID:         rec.BudgetID,
		Category:         rec.Category,
		NotificationType: "budget_alert",
		ThresholdType:    rec.ThresholdType,
		Channel:          rec.Channel,
		NotificationID:   rec.NotificationID,
		Timestamp:        rec.SentAt,
	})
	if err != nil {
		d.log.Warn("failed to marshal audit event", "error", err)
		return
	}
	env := domain.Envelope{
		Source:     "budgetwatch.notifications",
		DetailType: domain.EventTypeNotificationSent,
		Detail:     detail,
	}
	if err := d.publisher.Publish(ctx, auditTopic, env); err != nil {
		d.log.Warn("failed to publish notification audit event",
			"notification_id", rec.NotificationID, "error", err)
	}
}
