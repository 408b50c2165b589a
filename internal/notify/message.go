package notify

import (
	"fmt"

	"github.com/vuxmai/budgetwatch/internal/core/domain"
)

func renderWarning(ev domain.ThresholdEvent) Message {
	msg := Message{Title: "Budget Alert"}
	body := fmt.Sprintf("You've used %.2f%% of your %s budget ($%.2f of $%.2f)",
		ev.PercentageUsed, ev.Category, ev.CurrentSpending, ev.Limit)

	// Remaining headroom is only meaningful while it is non-negative;
	// a concurrent overshoot can push spending past the limit between
	// the threshold decision and rendering.
	if remaining := ev.Limit - ev.CurrentSpending; remaining >= 0 {
		body += fmt.Sprintf(". You have $%.2f remaining", remaining)
	}
	msg.Body = body
	return msg
}

func renderExceeded(ev domain.ThresholdEvent) Message {
	return Message{
		Title: "Budget Exceeded",
		Body: fmt.Sprintf("You've exceeded your %s budget! Spent $%.2f of $%.2f (%.2f%%)",
			ev.Category, ev.CurrentSpending, ev.Limit, ev.PercentageUsed),
	}
}
