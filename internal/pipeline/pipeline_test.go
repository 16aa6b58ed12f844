package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/iwvelando/procurement-planner/internal/config"
	"github.com/iwvelando/procurement-planner/internal/solver"
	"github.com/iwvelando/procurement-planner/internal/store"
	"github.com/iwvelando/procurement-planner/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func smallConfig(t testing.TB) *config.Configuration {
	t.Helper()
	conf, err := config.LoadConfiguration(filepath.Join("..", "..", "config.yaml.example"))
	require.NoError(t, err)
	conf.Solver.MaxCandidates = 12
	conf.Solver.TimeLimit = 5 * time.Second
	return conf
}

func TestRunEndToEnd(t *testing.T) {
	conf := smallConfig(t)
	runner, err := NewRunner(zap.NewNop(), conf)
	require.NoError(t, err)
	runner.OnProgress(nil)

	out, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.True(t, out.Solve.Status.HasSolution(), "status %s: %s", out.Solve.Status, out.Solve.Message)
	assert.Equal(t, out.Solve.Status, out.Results.Status)
	assert.Equal(t, len(out.Candidates), out.Summary.Candidates)
	assert.Equal(t, 12, out.Summary.Considered)
	assert.Equal(t, len(out.Candidates)-12, out.Summary.Dropped)
	assert.Equal(t, conf.Solver.Horizon.Periods, out.Summary.Periods)
	assert.Equal(t, conf.Seed, out.Summary.Seed)
	assert.Empty(t, out.Summary.RunID)
	assert.GreaterOrEqual(t, out.Summary.Total, out.Summary.Generation+out.Summary.Solve)

	spent := make([]float64, out.Summary.Periods)
	units := 0
	for _, e := range out.Results.Entries {
		assert.Positive(t, e.Quantity, e.ID)
		units += e.Quantity
		c := testutil.FindCandidate(out.Candidates, e.ID)
		require.NotNil(t, c, e.ID)
		for m, q := range out.Solve.Quantities[e.ID] {
			spent[m] += c.Price * float64(q)
		}
	}
	assert.Equal(t, units, out.Summary.Purchased)
	for m, s := range spent {
		assert.LessOrEqual(t, s, *conf.Solver.Budget+1e-6, "period %d", m+1)
	}
}

func TestRunPersistsToStore(t *testing.T) {
	conf := smallConfig(t)
	conf.Solver.Horizon = nil

	runner, err := NewRunner(zap.NewNop(), conf)
	require.NoError(t, err)
	runner.OnProgress(nil)

	s, err := store.Open(zap.NewNop(), filepath.Join(t.TempDir(), "planner.db"))
	require.NoError(t, err)
	defer s.Close()
	runner.SetStore(s)

	out, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, out.Summary.RunID)

	run, err := s.GetRun(context.Background(), out.Summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, out.Summary.Status, run.Status)
	assert.Equal(t, 1, run.Periods)

	stored, err := s.Candidates(context.Background(), out.Summary.RunID)
	require.NoError(t, err)
	assert.Len(t, stored, len(out.Candidates))

	entries, err := s.PlanEntries(context.Background(), out.Summary.RunID)
	require.NoError(t, err)
	assert.Len(t, entries, len(out.Results.Entries))
}

func TestRunReportsSolverFailureInResults(t *testing.T) {
	conf := smallConfig(t)
	runner, err := NewRunner(zap.NewNop(), conf)
	require.NoError(t, err)
	runner.OnProgress(nil)
	runner.Solver().SetBackend(nil)

	out, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, solver.Error, out.Results.Status)
	assert.Empty(t, out.Results.Entries)
	assert.NotEmpty(t, out.Summary.Notes)
}

func TestRunHonorsCancellation(t *testing.T) {
	runner, err := NewRunner(zap.NewNop(), smallConfig(t))
	require.NoError(t, err)
	runner.OnProgress(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = runner.Run(ctx)
	assert.Error(t, err)
}

func TestNewRunnerRejectsNilConfig(t *testing.T) {
	if _, err := NewRunner(nil, nil); err == nil {
		t.Fatal("expected an error for a nil configuration")
	}
}
