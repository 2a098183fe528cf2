// Package auditor follows the change event stream and re-checks that the
// books still balance after every change.
package auditor

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/from2future/poker-tracker/internal/ledger"
	"github.com/from2future/poker-tracker/pkg/events"
	"github.com/from2future/poker-tracker/pkg/logger"
	"github.com/from2future/poker-tracker/pkg/metrics"
)

// Source reads the full ledger
type Source interface {
	ListPlayers(ctx context.Context) ([]ledger.Player, error)
	ListSessions(ctx context.Context) ([]ledger.Session, error)
	ListResults(ctx context.Context) ([]ledger.Result, error)
}

// Service recomputes the dashboard whenever something changes
type Service struct {
	logger   *logger.Logger
	consumer events.Consumer
	source   Source
	opts     ledger.Options

	closeOnce sync.Once
	closeErr  error
}

// NewService creates a new auditor service instance
func NewService(l *logger.Logger, c events.Consumer, src Source, opts ledger.Options) *Service {
	return &Service{
		logger:   l,
		consumer: c,
		source:   src,
		opts:     opts,
	}
}

// Start audits once and then once per consumed event until ctx is done or
// the stream ends. The consumer is closed on every way out.
func (s *Service) Start(ctx context.Context) (err error) {
	s.logger.Info("starting auditor service")
	defer func() {
		if cerr := s.Shutdown(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if _, err := s.Audit(ctx); err != nil {
		s.logger.Error("initial audit failed", err)
	}

	msgChan, errChan := s.consumer.Consume(ctx)

	for {
		select {
		case msg, ok := <-msgChan:
			if !ok {
				return nil
			}
			if err := s.handleMessage(ctx, msg); err != nil {
				s.logger.Error("failed to handle message", err, zap.Int64("offset", msg.Offset))
			}

		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("consumer error: %w", err)
			}

		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Service) handleMessage(ctx context.Context, msg events.Message) error {
	event, err := events.Parse(msg.Value)
	if err != nil {
		s.logger.Warn("skipping malformed message",
			zap.Error(err),
			zap.Int64("offset", msg.Offset),
			zap.ByteString("payload", msg.Value))
		return s.consumer.Commit(ctx, msg)
	}
	metrics.EventsConsumedTotal.Inc()

	// leave the offset uncommitted so the event is seen again after a restart
	if _, err := s.Audit(ctx); err != nil {
		return fmt.Errorf("audit after %s: %w", event.Kind, err)
	}
	return s.consumer.Commit(ctx, msg)
}

// Audit reads the ledger, exports the gauges and warns when the history
// no longer balances
func (s *Service) Audit(ctx context.Context) (ledger.Dashboard, error) {
	players, err := s.source.ListPlayers(ctx)
	if err != nil {
		return ledger.Dashboard{}, fmt.Errorf("failed to list players: %w", err)
	}
	sessions, err := s.source.ListSessions(ctx)
	if err != nil {
		return ledger.Dashboard{}, fmt.Errorf("failed to list sessions: %w", err)
	}
	results, err := s.source.ListResults(ctx)
	if err != nil {
		return ledger.Dashboard{}, fmt.Errorf("failed to list results: %w", err)
	}

	d := ledger.Summarize(players, sessions, results, s.opts)

	discrepancy, _ := d.Discrepancy.Float64()
	volume, _ := d.Volume.Float64()
	metrics.LedgerDiscrepancy.Set(discrepancy)
	metrics.LedgerVolume.Set(volume)

	if d.Unbalanced {
		metrics.LedgerUnbalanced.Set(1)
		s.logger.Warn("ledger unbalanced",
			zap.String("discrepancy", d.Discrepancy.String()),
			zap.String("tolerance", s.opts.Tolerance.String()),
			zap.Int("sessions", d.TotalSessions))
	} else {
		metrics.LedgerUnbalanced.Set(0)
	}
	return d, nil
}

// Shutdown closes the consumer. Calls after the first return its result.
func (s *Service) Shutdown() error {
	s.closeOnce.Do(func() {
		s.logger.Info("shutting down auditor service")
		if err := s.consumer.Close(); err != nil {
			s.closeErr = fmt.Errorf("shutdown consumer: %w", err)
		}
	})
	return s.closeErr
}
