package store

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// Outcome is how a persistence attempt for one mutation ended.
type Outcome string

const (
	OutcomeSynced     Outcome = "synced"
	OutcomeQueued     Outcome = "queued"
	OutcomeRolledBack Outcome = "rolled_back"
	OutcomeNotFound   Outcome = "not_found"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeFailed     Outcome = "failed"
)

// PersistEvent captures one resolved persistence continuation.
type PersistEvent struct {
	Op        string
	PlanID    string
	Outcome   Outcome
	Duration  time.Duration
	Err       error
	StartedAt time.Time
}

// Observer receives persistence events.
type Observer interface {
	ObservePersist(ctx context.Context, event PersistEvent)
}

// NoopObserver ignores all events.
type NoopObserver struct{}

func (NoopObserver) ObservePersist(context.Context, PersistEvent) {}

type logObserver struct {
	logger *slog.Logger
}

// NewLogObserver writes persistence events to the provided writer.
func NewLogObserver(w io.Writer) Observer {
	if w == nil {
		return NoopObserver{}
	}
	return &logObserver{
		logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})),
	}
}

func (o *logObserver) ObservePersist(ctx context.Context, event PersistEvent) {
	attrs := []any{
		"op", event.Op,
		"plan_id", event.PlanID,
		"outcome", string(event.Outcome),
		"duration_ms", event.Duration.Milliseconds(),
	}
	if event.Err != nil {
		attrs = append(attrs, "error", event.Err.Error())
	}
	switch event.Outcome {
	case OutcomeRolledBack, OutcomeFailed:
		o.logger.ErrorContext(ctx, "store_persist", attrs...)
	case OutcomeQueued, OutcomeNotFound:
		o.logger.WarnContext(ctx, "store_persist", attrs...)
	default:
		o.logger.InfoContext(ctx, "store_persist", attrs...)
	}
}
