// Manual test harness: publishes sample transaction events to the bus
// so a locally running budgetwatch instance has something to chew on.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/vuxmai/budgetwatch/internal/core/domain"
	"github.com/vuxmai/budgetwatch/internal/infra/bus"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found")
	}

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		log.Fatalf("NATS_URL is not set")
	}

	ctx := context.Background()

	publisher, err := bus.NewNATSPublisher(bus.Config{URL: natsURL, Name: "budgetwatch-harness"})
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer publisher.Close()

	amounts := []float64{140, 30, 60}
	for i, amount := range amounts {
		detail, _ := json.Marshal(domain.TransactionEvent{
			UserID:        "demo-user",
			TransactionID: fmt.Sprintf("demo-tx-%d", i+1),
			Amount:        amount,
			Category:      "food",
			Type:          domain.TransactionTypeExpense,
			Timestamp:     time.Now(),
		})
		env := domain.Envelope{
			Source:     "budgetwatch.harness",
			DetailType: domain.EventTypeTransactionCreated,
			Detail:     detail,
		}

		if err := publisher.Publish(ctx, "transactions.created", env); err != nil {
			log.Printf("Publish %d failed: %v", i+1, err)
			continue
		}
		fmt.Printf("Published demo event %d: $%.2f food expense\n", i+1, amount)

		time.Sleep(100 * time.Millisecond)
	}
}
