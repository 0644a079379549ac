package scheduler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/modules/standards"
	"github.com/amanahlabs/tazkiyah/internal/work"
)

// StandardsLister supplies the latest version of every standard
type StandardsLister interface {
	ListLatest() ([]standards.Standard, error)
}

// RescreenJob re-evaluates the active universe against the latest
// version of every registered standard. Financial facts drift between
// filings; the nightly run keeps verdicts aligned with the newest
// ingested facts.
type RescreenJob struct {
	standards StandardsLister
	batch     *work.BatchRunner
	log       zerolog.Logger
}

// NewRescreenJob creates the nightly rescreen job
func NewRescreenJob(standardsLister StandardsLister, batch *work.BatchRunner, log zerolog.Logger) *RescreenJob {
	return &RescreenJob{
		standards: standardsLister,
		batch:     batch,
		log:       log.With().Str("job", "rescreen").Logger(),
	}
}

// Name implements Job
func (j *RescreenJob) Name() string { return "nightly_rescreen" }

// Run implements Job
func (j *RescreenJob) Run() error {
	latest, err := j.standards.ListLatest()
	if err != nil {
		return fmt.Errorf("failed to list standards: %w", err)
	}

	ctx := context.Background()
	for i := range latest {
		std := &latest[i]
		report, err := j.batch.Run(ctx, std)
		if err != nil {
			return fmt.Errorf("batch run under %s v%d: %w", std.Code, std.Version, err)
		}
		j.log.Info().
			Str("standard", std.Code).
			Int("version", std.Version).
			Int64("evaluated", report.Evaluated).
			Int64("failed", report.Failed).
			Msg("Nightly rescreen pass finished")
	}
	return nil
}
