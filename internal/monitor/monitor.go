// Package monitor wires a capture source, the flow table and the
// sampler's consumers into one running session for a single interface.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vladimirazarov/isa-top/internal/classify"
	"github.com/vladimirazarov/isa-top/internal/flow"
	"github.com/vladimirazarov/isa-top/internal/pcapsrc"
	"github.com/vladimirazarov/isa-top/internal/sampler"
	"github.com/vladimirazarov/isa-top/pkg/logging"
)

// Config controls one monitoring session.
type Config struct {
	Interface  string
	SortBy     flow.SortBy
	TopN       int
	Interval   time.Duration
	CSVLogPath string
	Promisc    bool
}

// Session owns a capture source and the flow table it feeds, plus the
// sampler that periodically drains it to the configured consumers.
type Session struct {
	cfg     Config
	source  *pcapsrc.Source
	table   *flow.Table
	locals  *classify.LocalAddrs
	sampler *sampler.Sampler
}

// Open starts capturing on cfg.Interface and prepares the flow table and
// sampler. It does not start the capture or display goroutines; call Run
// for that.
func Open(cfg Config) (*Session, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = sampler.DefaultInterval
	}
	if cfg.TopN <= 0 {
		cfg.TopN = sampler.DefaultTopN
	}

	locals, err := classify.LocalAddrsFromInterface(cfg.Interface)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve local addresses: %w", err)
	}

	srcCfg := pcapsrc.DefaultConfig()
	srcCfg.Promiscuous = cfg.Promisc
	source, err := pcapsrc.Open(cfg.Interface, srcCfg)
	if err != nil {
		return nil, err
	}

	table := flow.NewTable()

	return &Session{
		cfg:     cfg,
		source:  source,
		table:   table,
		locals:  locals,
		sampler: sampler.New(table, cfg.Interval, cfg.SortBy, cfg.TopN),
	}, nil
}

// AddConsumer registers a consumer (renderer, CSV logger, ...) that is
// invoked on every sampling tick.
func (s *Session) AddConsumer(c sampler.Consumer) {
	s.sampler.AddConsumer(c)
}

// Run starts the capture goroutine and blocks running the sampler loop
// until ctx is cancelled, at which point both the capture goroutine and
// the source are torn down before Run returns.
func (s *Session) Run(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	captureErr := make(chan error, 1)
	captureDone := make(chan struct{})
	go func() {
		defer close(captureDone)
		s.capture(ctx, captureErr)
	}()

	s.sampler.Run(ctx)

	if err := s.source.Unblock(); err != nil {
		logger.Errorf("failed to unblock capture on %q: %v", s.cfg.Interface, err)
	} else {
		<-captureDone
	}
	if err := s.source.Close(); err != nil {
		logger.Errorf("failed to close capture on %q: %v", s.cfg.Interface, err)
	}

	select {
	case err := <-captureErr:
		return err
	default:
		return nil
	}
}

// capture is the blocking packet-capture loop. It runs until ctx is
// cancelled or the source reports a non-recoverable error.
func (s *Session) capture(ctx context.Context, errOut chan<- error) {
	logger := logging.FromContext(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, err := s.source.Next()
		if err != nil {
			if errors.Is(err, pcapsrc.ErrUnblocked) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			errOut <- err
			return
		}

		now := time.Now()
		updates, err := classify.ClassifyIPLayer(frame.IPLayer, frame.Wire, s.locals)
		if err != nil {
			logger.Debugf("dropping unclassifiable packet on %q: %v", s.cfg.Interface, err)
			continue
		}
		for _, u := range updates {
			s.table.Update(u.Key, u.Dir, u.Bytes, now)
		}
	}
}
