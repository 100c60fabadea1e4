package results

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/numbermill/squarehunt/pkg/postgres"
)

// Archive stores verified solutions and search outcomes in Postgres. It is
// driven by the archiver consuming the Kafka topics, keeping the durable
// record decoupled from the hunters that produce it.
type Archive struct {
	client *postgres.Client
}

func NewArchive(client *postgres.Client) *Archive {
	return &Archive{client: client}
}

// Init creates the schema if it does not exist yet.
func (a *Archive) Init(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS solutions (
    magic_number NUMERIC(20)  NOT NULL,
    power        INT          NOT NULL,
    mode         TEXT         NOT NULL,
    cells        NUMERIC(20)[] NOT NULL,
    found_at     TIMESTAMPTZ  NOT NULL,
    archived_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (magic_number, power, cells)
);
CREATE TABLE IF NOT EXISTS search_outcomes (
    magic_number NUMERIC(20)  NOT NULL,
    power        INT          NOT NULL,
    mode         TEXT         NOT NULL,
    outcome      TEXT         NOT NULL,
    reason       TEXT         NOT NULL DEFAULT '',
    solutions    INT          NOT NULL,
    steps        NUMERIC(20)  NOT NULL,
    backtracks   NUMERIC(20)  NOT NULL,
    duration_sec DOUBLE PRECISION NOT NULL,
    completed_at TIMESTAMPTZ  NOT NULL,
    PRIMARY KEY (magic_number, power, mode)
);`
	if _, err := a.client.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating archive schema: %w", err)
	}
	return nil
}

// InsertSolution is idempotent so replayed Kafka messages are harmless.
func (a *Archive) InsertSolution(ctx context.Context, ev SolutionEvent) error {
	cells := make([]string, len(ev.Cells))
	for i, c := range ev.Cells {
		cells[i] = fmt.Sprintf("%d", c)
	}
	const q = `
INSERT INTO solutions (magic_number, power, mode, cells, found_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT DO NOTHING`
	_, err := a.client.DB.ExecContext(ctx, q,
		fmt.Sprintf("%d", ev.Magic), ev.Power, ev.Mode, pq.Array(cells), ev.FoundAt)
	if err != nil {
		return fmt.Errorf("inserting solution: %w", err)
	}
	return nil
}

// UpsertOutcome records the latest result for a magic number; a re-run of
// the same search overwrites the earlier row.
func (a *Archive) UpsertOutcome(ctx context.Context, ev OutcomeEvent) error {
	const q = `
INSERT INTO search_outcomes
    (magic_number, power, mode, outcome, reason, solutions, steps, backtracks, duration_sec, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (magic_number, power, mode) DO UPDATE SET
    outcome      = EXCLUDED.outcome,
    reason       = EXCLUDED.reason,
    solutions    = EXCLUDED.solutions,
    steps        = EXCLUDED.steps,
    backtracks   = EXCLUDED.backtracks,
    duration_sec = EXCLUDED.duration_sec,
    completed_at = EXCLUDED.completed_at`
	_, err := a.client.DB.ExecContext(ctx, q,
		fmt.Sprintf("%d", ev.Magic), ev.Power, ev.Mode, ev.Outcome, ev.Reason,
		ev.Solutions, fmt.Sprintf("%d", ev.Steps), fmt.Sprintf("%d", ev.Backtracks),
		ev.DurationSec, ev.CompletedAt)
	if err != nil {
		return fmt.Errorf("inserting outcome: %w", err)
	}
	return nil
}

// SolutionCount returns how many distinct solutions are archived.
func (a *Archive) SolutionCount(ctx context.Context) (int64, error) {
	var n int64
	err := a.client.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM solutions`).Scan(&n)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("counting solutions: %w", err)
	}
	return n, nil
}
