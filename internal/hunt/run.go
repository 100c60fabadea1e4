package hunt

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/numbermill/squarehunt/internal/walker"
	"github.com/numbermill/squarehunt/pkg/logger"
)

// Range is an inclusive span of candidate magic numbers.
type Range struct {
	From uint64
	To   uint64
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.From, r.To)
}

// Split partitions the range into at most n contiguous parts of roughly
// equal width so a single large range can occupy the whole worker pool.
func (r Range) Split(n int) []Range {
	if n <= 1 {
		return []Range{r}
	}
	width := (r.To - r.From + 1) / uint64(n)
	if width < 3 {
		return []Range{r}
	}
	parts := make([]Range, 0, n)
	from := r.From
	for i := 0; i < n; i++ {
		to := from + width - 1
		if i == n-1 {
			to = r.To
		}
		parts = append(parts, Range{From: from, To: to})
		from = to + 1
	}
	return parts
}

// Run searches every explicit number and every range, with at most
// cfg.Hunt.Processes searches in flight. A single range is split across the
// pool; several ranges run one walker each. The first hard error cancels
// all remaining work.
func (h *Hunter) Run(ctx context.Context, numbers []uint64, ranges []Range) error {
	if len(ranges) == 1 {
		ranges = ranges[0].Split(h.cfg.Hunt.Processes)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.cfg.Hunt.Processes)

	for _, n := range numbers {
		g.Go(func() error {
			_, err := h.Search(logger.WithMagicNumber(gctx, n), n)
			return err
		})
	}

	for _, r := range ranges {
		g.Go(func() error {
			return h.walkRange(gctx, r)
		})
	}

	return g.Wait()
}

func (h *Hunter) walkRange(ctx context.Context, r Range) error {
	w := walker.New(r.From, r.To, h.cfg.Hunt.WalkerSaveEvery, h.store)
	if h.metrics != nil {
		gauge := h.metrics.WalkPosition.WithLabelValues(r.String())
		w.Progress = func(next uint64) {
			gauge.Set(float64(next))
		}
	}
	return w.Run(ctx, func(ctx context.Context, magic uint64) error {
		_, err := h.Search(logger.WithMagicNumber(ctx, magic), magic)
		return err
	})
}
