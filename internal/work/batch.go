// Package work runs the background fan-out jobs of the engine: batch
// re-screening across the security universe and the event-driven
// recomputation that follows verdict changes.
package work

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/amanahlabs/tazkiyah/internal/modules/screening"
	"github.com/amanahlabs/tazkiyah/internal/modules/standards"
	"github.com/amanahlabs/tazkiyah/internal/modules/universe"
)

// SecurityLister supplies the active screening universe
type SecurityLister interface {
	GetAllActive() ([]universe.Security, error)
}

// Evaluator runs one evaluation against a pinned standard version
type Evaluator interface {
	EvaluateAgainst(ctx context.Context, isin string, std *standards.Standard) (*screening.ComplianceVerdict, error)
}

// BatchReport summarizes one batch run. Failures and skips are counted,
// not fatal: every security's evaluation commits independently.
type BatchReport struct {
	Evaluated int64 `json:"evaluated"`
	Skipped   int64 `json:"skipped"`
	Failed    int64 `json:"failed"`
}

// BatchRunner fans evaluation out across the active universe with a
// bounded worker pool. Cancellation is cooperative per security:
// evaluations already started run to completion and commit, only
// not-yet-started ones are skipped.
type BatchRunner struct {
	securities SecurityLister
	evaluator  Evaluator
	workers    int
	log        zerolog.Logger
}

// NewBatchRunner creates a new batch runner
func NewBatchRunner(securities SecurityLister, evaluator Evaluator, workers int, log zerolog.Logger) *BatchRunner {
	if workers < 1 {
		workers = 1
	}
	return &BatchRunner{
		securities: securities,
		evaluator:  evaluator,
		workers:    workers,
		log:        log.With().Str("component", "batch_runner").Logger(),
	}
}

// Run evaluates every active security against the pinned standard
// version. All securities in one batch see the same version even if a
// newer one is published mid-run.
func (r *BatchRunner) Run(ctx context.Context, std *standards.Standard) (*BatchReport, error) {
	securities, err := r.securities.GetAllActive()
	if err != nil {
		return nil, err
	}

	r.log.Info().
		Str("standard", std.Code).
		Int("version", std.Version).
		Int("securities", len(securities)).
		Msg("Batch evaluation started")

	report := &BatchReport{}
	var g errgroup.Group
	g.SetLimit(r.workers)

	for _, sec := range securities {
		isin := sec.ISIN
		g.Go(func() error {
			if ctx.Err() != nil {
				atomic.AddInt64(&report.Skipped, 1)
				return nil
			}
			if _, err := r.evaluator.EvaluateAgainst(ctx, isin, std); err != nil {
				if ctx.Err() != nil {
					atomic.AddInt64(&report.Skipped, 1)
					return nil
				}
				atomic.AddInt64(&report.Failed, 1)
				r.log.Error().Err(err).Str("isin", isin).Msg("Batch evaluation failed for security")
				return nil
			}
			atomic.AddInt64(&report.Evaluated, 1)
			return nil
		})
	}

	_ = g.Wait()

	r.log.Info().
		Int64("evaluated", report.Evaluated).
		Int64("skipped", report.Skipped).
		Int64("failed", report.Failed).
		Msg("Batch evaluation finished")

	return report, nil
}
