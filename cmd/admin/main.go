// Admin utility for operating on the dead-letter queue and seeding the
// database. Reads REDIS_URL and DATABASE_URL from the environment or a
// .env file.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/vuxmai/budgetwatch/internal/core/domain"
	redisclient "github.com/vuxmai/budgetwatch/internal/infra/redis"
)

func main() {
	list := flag.Bool("list", false, "List queued dead letters")
	resolve := flag.String("resolve", "", "Mark a dead letter resolved by id")
	seed := flag.String("seed", "", "Apply a SQL script to the database")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	switch {
	case *list:
		listDeadLetters()
	case *resolve != "":
		resolveDeadLetter(*resolve)
	case *seed != "":
		applyScript(*seed)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func deadLetterRepo() *redisclient.DeadLetterRepo {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		log.Fatal("REDIS_URL is not set")
	}
	client, err := redisclient.NewClient(redisclient.Config{URL: url})
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	return redisclient.NewDeadLetterRepo(client, "budgetwatch")
}

func listDeadLetters() {
	ctx := context.Background()
	letters, err := deadLetterRepo().GetAll(ctx)
	if err != nil {
		log.Fatalf("Failed to list dead letters: %v", err)
	}
	if len(letters) == 0 {
		fmt.Println("Dead-letter queue is empty")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEVENT\tUSER\tKIND\tSTATUS\tRETRIES\tLAST ATTEMPT\tERROR")
	for _, dl := range letters {
		last := "-"
		if dl.LastAttempt > 0 {
			last = time.Unix(int64(dl.LastAttempt), 0).Format(time.RFC3339)
		}
		status := dl.Status
		if status == "" {
			status = domain.DeadLetterStatusPending
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			dl.ID, dl.EventType, dl.UserID, dl.ErrorKind, status, dl.RetryCount, last, dl.Error)
	}
	w.Flush()

	// Full payloads on request via jq-friendly output
	if os.Getenv("ADMIN_DUMP_PAYLOADS") != "" {
		for _, dl := range letters {
			out, _ := json.Marshal(dl)
			fmt.Println(string(out))
		}
	}
}

func resolveDeadLetter(id string) {
	ctx := context.Background()
	if err := deadLetterRepo().MarkResolved(ctx, id); err != nil {
		log.Fatalf("Failed to resolve %s: %v", id, err)
	}
	fmt.Printf("Resolved dead letter %s\n", id)
}

func applyScript(path string) {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	content, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read script: %v", err)
	}
	if _, err := db.Exec(string(content)); err != nil {
		log.Fatalf("Failed to apply script: %v", err)
	}
	fmt.Printf("Successfully applied %s\n", path)
}
