package processing

import (
	"errors"
	"testing"

	"github.com/vuxmai/budgetwatch/internal/core/domain"
	"github.com/vuxmai/budgetwatch/internal/reliability/classify"
)

func TestNormalizeWrappedShape(t *testing.T) {
	raw := []byte(`{
		"source": "finance.transactions",
		"detail-type": "transaction.created",
		"detail": {"userId": "u1", "transactionId": "t1", "amount": 42.5, "category": "food", "type": "expense"}
	}`)

	env, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if env.DetailType != domain.EventTypeTransactionCreated {
		t.Fatalf("detail type = %q", env.DetailType)
	}
	if env.Source != "finance.transactions" {
		t.Fatalf("source = %q", env.Source)
	}

	ev, err := TransactionDetail(env)
	if err != nil {
		t.Fatalf("TransactionDetail: %v", err)
	}
	if ev.UserID != "u1" || ev.Amount != 42.5 || ev.Category != "food" {
		t.Fatalf("payload mismatch: %+v", ev)
	}
}

func TestNormalizePascalCaseShape(t *testing.T) {
	raw := []byte(`{
		"DetailType": "transaction.created",
		"Detail": {"userId": "u2", "amount": 10, "category": "travel", "type": "expense"}
	}`)

	env, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if env.DetailType != domain.EventTypeTransactionCreated {
		t.Fatalf("detail type = %q", env.DetailType)
	}

	ev, err := TransactionDetail(env)
	if err != nil {
		t.Fatalf("TransactionDetail: %v", err)
	}
	if ev.UserID != "u2" {
		t.Fatalf("user = %q", ev.UserID)
	}
}

func TestNormalizeBareShape(t *testing.T) {
	// Bare payload carrying its own detail-type field.
	raw := []byte(`{"detail-type": "transaction.created", "userId": "u3", "amount": 5, "category": "misc", "type": "expense"}`)

	env, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	ev, err := TransactionDetail(env)
	if err != nil {
		t.Fatalf("TransactionDetail: %v", err)
	}
	if ev.UserID != "u3" || ev.Amount != 5 {
		t.Fatalf("payload mismatch: %+v", ev)
	}
}

func TestNormalizeRejectsMissingDetailType(t *testing.T) {
	_, err := Normalize([]byte(`{"detail": {"userId": "u1"}}`))
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := classify.Classify(err); kind != classify.KindValidation {
		t.Fatalf("kind = %v, want validation", kind)
	}
}

func TestNormalizeRejectsMalformedJSON(t *testing.T) {
	_, err := Normalize([]byte(`{not json`))
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := classify.Classify(err); kind != classify.KindValidation {
		t.Fatalf("kind = %v, want validation", kind)
	}
}

func TestTransactionDetailUpdatedUsesAfterState(t *testing.T) {
	raw := []byte(`{
		"detail-type": "transaction.updated",
		"detail": {
			"userId": "u1",
			"transactionId": "t9",
			"beforeState": {"amount": 10, "category": "food", "type": "expense"},
			"afterState": {"amount": 25, "category": "food", "type": "expense"},
			"changes": ["amount"]
		}
	}`)

	env, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	ev, err := TransactionDetail(env)
	if err != nil {
		t.Fatalf("TransactionDetail: %v", err)
	}
	if ev.Amount != 25 {
		t.Fatalf("amount = %v, want after-state amount 25", ev.Amount)
	}
	if ev.UserID != "u1" {
		t.Fatalf("user id not inherited from envelope payload: %q", ev.UserID)
	}
}

func TestTransactionDetailDeletedUsesRemovedTransaction(t *testing.T) {
	raw := []byte(`{
		"detail-type": "transaction.deleted",
		"detail": {
			"userId": "u1",
			"transactionId": "t3",
			"deletedTransaction": {"amount": 60, "category": "food", "type": "expense"},
			"deletedBy": "u1"
		}
	}`)

	env, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	ev, err := TransactionDetail(env)
	if err != nil {
		t.Fatalf("TransactionDetail: %v", err)
	}
	if ev.Amount != 60 || ev.UserID != "u1" {
		t.Fatalf("payload mismatch: %+v", ev)
	}
}

func TestTransactionDetailRejectsUnknownType(t *testing.T) {
	env := domain.Envelope{DetailType: "user.created", Detail: []byte(`{}`)}
	_, err := TransactionDetail(env)
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *classify.ClassifiedError
	if !errors.As(err, &ce) || ce.Kind != classify.KindValidation {
		t.Fatalf("err = %v, want validation classified error", err)
	}
}
