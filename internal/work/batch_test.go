package work

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amanahlabs/tazkiyah/internal/modules/screening"
	"github.com/amanahlabs/tazkiyah/internal/modules/standards"
	"github.com/amanahlabs/tazkiyah/internal/modules/universe"
)

type stubLister struct {
	securities []universe.Security
}

func (s *stubLister) GetAllActive() ([]universe.Security, error) {
	return s.securities, nil
}

type recordingEvaluator struct {
	mu        sync.Mutex
	evaluated []string
	fail      map[string]bool
	onStart   func(isin string)
}

func (e *recordingEvaluator) EvaluateAgainst(ctx context.Context, isin string, std *standards.Standard) (*screening.ComplianceVerdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.onStart != nil {
		e.onStart(isin)
	}
	if e.fail[isin] {
		return nil, fmt.Errorf("no facts for %s", isin)
	}
	e.mu.Lock()
	e.evaluated = append(e.evaluated, isin)
	e.mu.Unlock()
	return &screening.ComplianceVerdict{ISIN: isin}, nil
}

func securitiesFixture(n int) []universe.Security {
	out := make([]universe.Security, n)
	for i := range out {
		out[i] = universe.Security{ISIN: fmt.Sprintf("US%010d", i)}
	}
	return out
}

func batchStandard() *standards.Standard {
	seeds := standards.SeedStandards()
	std := seeds[0]
	std.Version = 1
	return &std
}

func TestBatchRunEvaluatesEverySecurity(t *testing.T) {
	eval := &recordingEvaluator{}
	runner := NewBatchRunner(&stubLister{securities: securitiesFixture(20)}, eval, 4, zerolog.Nop())

	report, err := runner.Run(context.Background(), batchStandard())
	require.NoError(t, err)

	assert.Equal(t, int64(20), report.Evaluated)
	assert.Equal(t, int64(0), report.Failed)
	assert.Len(t, eval.evaluated, 20)
}

func TestBatchRunFailuresCommitIndependently(t *testing.T) {
	eval := &recordingEvaluator{fail: map[string]bool{
		"US0000000003": true,
		"US0000000007": true,
	}}
	runner := NewBatchRunner(&stubLister{securities: securitiesFixture(10)}, eval, 4, zerolog.Nop())

	report, err := runner.Run(context.Background(), batchStandard())
	require.NoError(t, err)

	assert.Equal(t, int64(8), report.Evaluated, "other securities still commit")
	assert.Equal(t, int64(2), report.Failed)
}

func TestBatchRunCancellationSkipsNotYetStarted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var once sync.Once
	eval := &recordingEvaluator{
		onStart: func(string) {
			// Cancel after the first evaluation starts; it still
			// completes and commits.
			once.Do(cancel)
		},
	}
	runner := NewBatchRunner(&stubLister{securities: securitiesFixture(50)}, eval, 1, zerolog.Nop())

	report, err := runner.Run(ctx, batchStandard())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, report.Evaluated, int64(1), "in-flight evaluation ran to completion")
	assert.Greater(t, report.Skipped, int64(0), "not-yet-started evaluations were skipped")
	assert.Equal(t, int64(50), report.Evaluated+report.Skipped+report.Failed)
}
