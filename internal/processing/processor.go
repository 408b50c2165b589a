// Package processing fans batches of inbound events out to a per-record
// handler with retry, circuit breaking, and dead-letter capture.
package processing

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vuxmai/budgetwatch/internal/core/domain"
	"github.com/vuxmai/budgetwatch/internal/metrics"
	"github.com/vuxmai/budgetwatch/internal/reliability/breaker"
	"github.com/vuxmai/budgetwatch/internal/reliability/classify"
	"github.com/vuxmai/budgetwatch/internal/reliability/retry"
)

// Handler processes a single normalized event record.
type Handler func(ctx context.Context, env domain.Envelope) error

// DeadLetterSink receives records whose processing failed permanently.
type DeadLetterSink interface {
	Capture(ctx context.Context, dl *domain.DeadLetter) error
}

// LogSink is the zero-dependency sink: it logs the dead letter with
// full context and drops it.
type LogSink struct {
	Log *slog.Logger
}

// Capture logs the dead letter.
func (s *LogSink) Capture(ctx context.Context, dl *domain.DeadLetter) error {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	log.Error("record dead-lettered",
		"id", dl.ID,
		"event_type", string(dl.EventType),
		"user_id", dl.UserID,
		"record_id", dl.RecordID,
		"error_kind", dl.ErrorKind,
		"error", dl.Error)
	return nil
}

// RecordError describes one failed record of a batch.
type RecordError struct {
	Index     int              `json:"index"`
	EventType domain.EventType `json:"event_type"`
	Kind      classify.Kind    `json:"kind"`
	Err       error            `json:"-"`
	Message   string           `json:"message"`
}

// Result summarizes a batch run.
type Result struct {
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Results   []domain.Envelope `json:"-"`
	Errors    []RecordError     `json:"errors,omitempty"`
}

// Processor runs batches through the retry executor and per-dependency
// circuit breaker, isolating per-record failures.
type Processor struct {
	exec     *retry.Executor
	breakers *breaker.Registry
	sink     DeadLetterSink
	log      *slog.Logger
}

// NewProcessor creates a Processor. sink may be nil, in which case dead
// letters are logged and dropped.
func NewProcessor(exec *retry.Executor, breakers *breaker.Registry, sink DeadLetterSink, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	if sink == nil {
		sink = &LogSink{Log: log}
	}
	return &Processor{
		exec:     exec,
		breakers: breakers,
		sink:     sink,
		log:      log,
	}
}

// ProcessBatch processes every raw record independently: one record's
// terminal failure never aborts its siblings, and partial failure is
// reported in the Result rather than returned as an error. The handler
// dependency name selects which circuit breaker wraps the handler.
func (p *Processor) ProcessBatch(ctx context.Context, records [][]byte, dependency string, handle Handler) Result {
	start := time.Now()
	defer func() {
		metrics.BatchDuration.Observe(time.Since(start).Seconds())
	}()

	res := Result{Total: len(records)}
	b := p.breakers.Get(dependency)

	for i, raw := range records {
		env, err := Normalize(raw)
		if err == nil {
			err = p.exec.Do(ctx, b, func(ctx context.Context) error {
				return handle(ctx, env)
			})
		}

		if err != nil {
			kind := classify.Classify(err)
			res.Failed++
			res.Errors = append(res.Errors, RecordError{
				Index:     i,
				EventType: env.DetailType,
				Kind:      kind,
				Err:       err,
				Message:   err.Error(),
			})
			metrics.EventsProcessed.WithLabelValues(string(env.DetailType), "failed").Inc()
			p.deadLetter(ctx, env, raw, err, kind)
			continue
		}

		res.Succeeded++
		res.Results = append(res.Results, env)
		metrics.EventsProcessed.WithLabelValues(string(env.DetailType), "succeeded").Inc()
	}

	return res
}

// deadLetter forwards a terminally failed record to the sink. Sink
// failures are logged and swallowed; dead-lettering is best-effort here,
// durability is the sink implementation's concern.
func (p *Processor) deadLetter(ctx context.Context, env domain.Envelope, raw []byte, cause error, kind classify.Kind) {
	dl := &domain.DeadLetter{
		ID:          uuid.New().String(),
		EventType:   env.DetailType,
		Payload:     raw,
		Error:       cause.Error(),
		ErrorKind:   string(kind),
		Status:      domain.DeadLetterStatusPending,
		LastAttempt: uint64(time.Now().Unix()),
		CreatedAt:   uint64(time.Now().Unix()),
	}

	// Best-effort identity context for later inspection.
	if len(env.Detail) > 0 {
		var ids struct {
			UserID        string `json:"userId"`
			TransactionID string `json:"transactionId"`
		}
		if err := json.Unmarshal(env.Detail, &ids); err == nil {
			dl.UserID = ids.UserID
			dl.RecordID = ids.TransactionID
		}
	}

	metrics.DeadLetters.WithLabelValues(string(dl.EventType), dl.ErrorKind).Inc()

	if err := p.sink.Capture(ctx, dl); err != nil {
		p.log.Error("dead-letter capture failed", "id", dl.ID, "error", err)
	}
}
