package processing

import (
	"encoding/json"
	"fmt"

	"github.com/vuxmai/budgetwatch/internal/core/domain"
	"github.com/vuxmai/budgetwatch/internal/reliability/classify"
)

// rawRecord tolerates the two historical envelope spellings. Producers
// emitted either a bus envelope ({"detail-type": ..., "detail": {...}})
// or the bare detail payload with pascal-case keys. Normalization happens
// here, once, so consumers only ever see domain.Envelope.
type rawRecord struct {
	Source      string          `json:"source"`
	DetailType  string          `json:"detail-type"`
	DetailType2 string          `json:"DetailType"`
	Detail      json.RawMessage `json:"detail"`
	Detail2     json.RawMessage `json:"Detail"`
	BusName     string          `json:"bus_name"`
}

// Normalize converts a raw inbound record into the canonical Envelope.
// Records with no recognizable detail-type are a validation failure.
func Normalize(raw []byte) (domain.Envelope, error) {
	var rec rawRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Envelope{}, classify.Validation(fmt.Errorf("malformed event record: %w", err))
	}

	detailType := rec.DetailType
	if detailType == "" {
		detailType = rec.DetailType2
	}
	if detailType == "" {
		return domain.Envelope{}, classify.Validationf("event record has no detail-type")
	}

	detail := rec.Detail
	if len(detail) == 0 {
		detail = rec.Detail2
	}
	if len(detail) == 0 {
		// Bare shape: the whole record is the payload.
		detail = raw
	}

	return domain.Envelope{
		Source:     rec.Source,
		DetailType: domain.EventType(detailType),
		Detail:     detail,
		BusName:    rec.BusName,
	}, nil
}

// TransactionDetail extracts the spending-affecting transaction state from
// an envelope. Updates use the after state; deletes use the removed
// transaction. Non-transaction envelopes return a validation failure.
func TransactionDetail(env domain.Envelope) (*domain.TransactionEvent, error) {
	switch env.DetailType {
	case domain.EventTypeTransactionCreated:
		var ev domain.TransactionEvent
		if err := json.Unmarshal(env.Detail, &ev); err != nil {
			return nil, classify.Validation(fmt.Errorf("decode %s: %w", env.DetailType, err))
		}
		return &ev, nil

	case domain.EventTypeTransactionUpdated:
		var ev domain.TransactionUpdatedEvent
		if err := json.Unmarshal(env.Detail, &ev); err != nil {
			return nil, classify.Validation(fmt.Errorf("decode %s: %w", env.DetailType, err))
		}
		state := ev.AfterState
		if state == nil {
			return nil, classify.Validationf("%s event has no afterState", env.DetailType)
		}
		if state.UserID == "" {
			state.UserID = ev.UserID
		}
		return state, nil

	case domain.EventTypeTransactionDeleted:
		var ev domain.TransactionDeletedEvent
		if err := json.Unmarshal(env.Detail, &ev); err != nil {
			return nil, classify.Validation(fmt.Errorf("decode %s: %w", env.DetailType, err))
		}
		state := ev.DeletedTransaction
		if state == nil {
			return nil, classify.Validationf("%s event has no deletedTransaction", env.DetailType)
		}
		if state.UserID == "" {
			state.UserID = ev.UserID
		}
		return state, nil

	default:
		return nil, classify.Validationf("unexpected detail-type %q", env.DetailType)
	}
}
