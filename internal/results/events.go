package results

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/numbermill/squarehunt/pkg/config"
	"github.com/numbermill/squarehunt/pkg/kafka"
)

// SolutionEvent announces a verified magic square on the solution-found
// topic. Cells are row-major magnitudes.
type SolutionEvent struct {
	Magic   uint64    `json:"magic_number"`
	Power   int       `json:"power"`
	Mode    string    `json:"mode"`
	Cells   [9]uint64 `json:"cells"`
	FoundAt time.Time `json:"found_at"`
}

// OutcomeEvent summarises one finished magic-number search on the
// search-outcome topic, whether or not it found anything.
type OutcomeEvent struct {
	Magic       uint64    `json:"magic_number"`
	Power       int       `json:"power"`
	Mode        string    `json:"mode"`
	Outcome     string    `json:"outcome"` // found, not_found or infeasible
	Reason      string    `json:"reason,omitempty"`
	Solutions   int       `json:"solutions"`
	Steps       uint64    `json:"steps"`
	Backtracks  uint64    `json:"backtracks"`
	DurationSec float64   `json:"duration_sec"`
	CompletedAt time.Time `json:"completed_at"`
}

// Publisher pushes search events to Kafka. Publishing is best-effort: a
// broker outage must never stall the search, so failures are logged and
// dropped.
type Publisher struct {
	solutions *kafka.Producer
	outcomes  *kafka.Producer
	logger    *slog.Logger
}

func NewPublisher(cfg config.KafkaConfig) *Publisher {
	return &Publisher{
		solutions: kafka.NewProducer(cfg, cfg.Topics.SolutionFound),
		outcomes:  kafka.NewProducer(cfg, cfg.Topics.SearchOutcome),
		logger:    slog.Default().With("component", "publisher"),
	}
}

func (p *Publisher) Solution(ctx context.Context, ev SolutionEvent) {
	ev.FoundAt = time.Now().UTC()
	err := p.solutions.Publish(ctx, kafka.Event{
		Key:   fmt.Sprintf("%d", ev.Magic),
		Value: ev,
	})
	if err != nil {
		p.logger.Warn("dropping solution event", "magic_number", ev.Magic, "error", err)
	}
}

func (p *Publisher) Outcome(ctx context.Context, ev OutcomeEvent) {
	ev.CompletedAt = time.Now().UTC()
	err := p.outcomes.Publish(ctx, kafka.Event{
		Key:   fmt.Sprintf("%d", ev.Magic),
		Value: ev,
	})
	if err != nil {
		p.logger.Warn("dropping outcome event", "magic_number", ev.Magic, "error", err)
	}
}

func (p *Publisher) Close() error {
	if err := p.solutions.Close(); err != nil {
		p.outcomes.Close()
		return err
	}
	return p.outcomes.Close()
}
