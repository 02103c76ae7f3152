// Package sampler drives the display thread's periodic sampling tick: at
// a fixed cadence it asks the flow table for a ranked view and hands the
// result to whatever consumers are registered (terminal renderer, CSV
// logger).
package sampler

import (
	"context"
	"time"

	"github.com/vladimirazarov/isa-top/internal/flow"
	"github.com/vladimirazarov/isa-top/pkg/logging"
)

// DefaultInterval is the sampling cadence used unless overridden.
const DefaultInterval = time.Second

// DefaultTopN is the number of flows kept after ranking.
const DefaultTopN = 10

// Consumer receives one ranked view per sampling tick.
type Consumer interface {
	Consume(view []flow.Entry, sampledAt time.Time) error
}

// ConsumerFunc adapts a plain function to Consumer.
type ConsumerFunc func(view []flow.Entry, sampledAt time.Time) error

// Consume calls f.
func (f ConsumerFunc) Consume(view []flow.Entry, sampledAt time.Time) error {
	return f(view, sampledAt)
}

// Sampler owns the display-thread ticker. It never touches the table's
// lock itself beyond the single SampleAndRank call per tick; all
// consumer work (rendering, CSV writes) runs after that call returns, so
// the table lock is never held across I/O.
type Sampler struct {
	table     *flow.Table
	interval  time.Duration
	topN      int
	sortBy    flow.SortBy
	consumers []Consumer
}

// New returns a Sampler reading from table at the given cadence, sorted
// by sortBy, keeping at most topN flows per tick.
func New(table *flow.Table, interval time.Duration, sortBy flow.SortBy, topN int) *Sampler {
	return &Sampler{
		table:    table,
		interval: interval,
		topN:     topN,
		sortBy:   sortBy,
	}
}

// AddConsumer registers a consumer invoked with every tick's ranked
// view. Consumers run in registration order; an error from one consumer
// is logged and does not prevent the remaining consumers from running
// (per the error handling design, a failed CSV write must never abort
// the monitor).
func (s *Sampler) AddConsumer(c Consumer) {
	s.consumers = append(s.consumers, c)
}

// Run blocks, sampling the table every interval until ctx is canceled.
func (s *Sampler) Run(ctx context.Context) {
	logger := logging.FromContext(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			view := s.table.SampleAndRank(s.sortBy, now, s.topN)
			for _, c := range s.consumers {
				if err := c.Consume(view, now); err != nil {
					logger.Errorf("sampler consumer failed: %v", err)
				}
			}
		}
	}
}
