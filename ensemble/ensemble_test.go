package ensemble

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/asnyv/fmu-ensemble/ensemble/internal/testutil"
)

// buildEnsembleDir lays out realization-0..n-1 with parameters, npv.txt and a
// summary file, plus one broken realization without STATUS.
func buildEnsembleDir(t *testing.T, n int) string {
	t.Helper()
	root := t.TempDir()
	for i := 0; i < n; i++ {
		testutil.RealizationDir(t, root, i, map[string]string{
			"parameters.txt":            fmt.Sprintf("KRW1 %d.5\nSEED %d\n", i, 100+i),
			"npv.txt":                   fmt.Sprintf("%d\n", 1000*(i+1)),
			"eclipse/model/CASE.UNSMRY": "binary",
		})
	}
	testutil.WriteFiles(t, filepath.Join(root, "realization-99", "iter-0"), map[string]string{
		"parameters.txt": "KRW1 0\n",
	})
	return root
}

func ensembleConfig(t *testing.T, concurrency int) (EnsembleConfig, *testutil.SummaryOpener) {
	opener := newOpener(t)
	cfg := DefaultEnsembleConfig()
	cfg.Realization = fakeConfig(opener)
	cfg.Concurrency = concurrency
	return cfg, opener
}

func TestNewScratchEnsemble_SkipsInvalidRealizations(t *testing.T) {
	root := buildEnsembleDir(t, 3)
	logger, hook := logtest.NewNullLogger()
	cfg, _ := ensembleConfig(t, 1)
	cfg.Realization.Logger = logger

	ens, err := NewScratchEnsemble("reektest", filepath.Join(root, "realization-*", "iter-0"), cfg)
	require.NoError(t, err)

	assert.Equal(t, "reektest", ens.Name())
	assert.Equal(t, []int{0, 1, 2}, ens.Indices())
	assert.Equal(t, 3, ens.Len())

	var skipped bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Message == "skipping realization" {
			skipped = true
		}
	}
	assert.True(t, skipped, "expected a warning for the realization without STATUS")
}

func TestNewScratchEnsemble_NothingValid(t *testing.T) {
	cfg, _ := ensembleConfig(t, 1)
	_, err := NewScratchEnsemble("empty", filepath.Join(t.TempDir(), "realization-*", "iter-0"), cfg)
	assert.ErrorIs(t, err, ErrNoRealizations)
}

func TestScratchEnsemble_Parameters(t *testing.T) {
	root := buildEnsembleDir(t, 2)
	cfg, _ := ensembleConfig(t, 1)
	ens, err := NewScratchEnsemble("reektest", filepath.Join(root, "realization-*", "iter-0"), cfg)
	require.NoError(t, err)

	params := ens.Parameters()
	require.Len(t, params, 2)
	assert.True(t, RealValue(0.5).Equal(params[0]["KRW1"]))
	assert.True(t, IntValue(101).Equal(params[1]["SEED"]))
}

func TestProcessBatch_LoadsAcrossRealizations(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := buildEnsembleDir(t, 4)
	cfg, opener := ensembleConfig(t, 3)
	ens, err := NewScratchEnsemble("reektest", filepath.Join(root, "realization-*", "iter-0"), cfg)
	require.NoError(t, err)

	err = ens.ProcessBatch(context.Background(), []BatchStep{
		{Op: "load_scalar", Args: map[string]any{"localpath": "npv.txt"}},
		{Op: "load_smry", Args: map[string]any{"column_keys": "FOPT", "time_index": "yearly"}},
		{Op: "load_smry", Args: map[string]any{"column_keys": []any{"*"}, "time_index": "raw"}},
		{Op: "load_txt", Args: map[string]any{"localpath": "missing.txt"}},
	})
	require.NoError(t, err)

	npv := ens.Scalars("npv.txt")
	require.Len(t, npv, 4)
	assert.True(t, IntValue(3000).Equal(npv[2]))

	yearly := ens.Table("unsmry--yearly")
	require.Len(t, yearly, 4)
	assert.Equal(t, []string{"FOPT"}, yearly[0].Columns)
	assert.Len(t, ens.Table("unsmry--raw")[3].Columns, 3)

	assert.Equal(t, []string{"npv.txt", "unsmry--raw", "unsmry--yearly"}, ens.Keys())
	// One decode per realization, reused by the second load_smry step.
	assert.Equal(t, 4, opener.Calls())
}

func TestProcessBatch_ValidatesBeforeRunning(t *testing.T) {
	root := buildEnsembleDir(t, 1)
	cfg, _ := ensembleConfig(t, 1)
	ens, err := NewScratchEnsemble("reektest", filepath.Join(root, "realization-*", "iter-0"), cfg)
	require.NoError(t, err)

	err = ens.ProcessBatch(context.Background(), []BatchStep{
		{Op: "load_scalar", Args: map[string]any{"localpath": "npv.txt"}},
		{Op: "load_everything"},
	})
	assert.ErrorIs(t, err, ErrUnknownBatchOp)
	assert.Empty(t, ens.Keys())

	err = ens.ProcessBatch(context.Background(), []BatchStep{{Op: "load_scalar"}})
	assert.ErrorIs(t, err, ErrInvalidBatchArgs)

	err = ens.ProcessBatch(context.Background(), []BatchStep{
		{Op: "load_smry", Args: map[string]any{"column_keys": 7}},
	})
	assert.ErrorIs(t, err, ErrInvalidBatchArgs)

	err = ens.ProcessBatch(context.Background(), []BatchStep{
		{Op: "load_smry", Args: map[string]any{"time_index": "hourly"}},
	})
	assert.ErrorIs(t, err, ErrUnknownTimeIndex)
}

func TestProcessBatch_FindFiles(t *testing.T) {
	root := buildEnsembleDir(t, 2)
	cfg, _ := ensembleConfig(t, 2)
	ens, err := NewScratchEnsemble("reektest", filepath.Join(root, "realization-*", "iter-0"), cfg)
	require.NoError(t, err)

	err = ens.ProcessBatch(context.Background(), []BatchStep{
		{Op: "find_files", Args: map[string]any{"pattern": "eclipse/model/*.UNSMRY"}},
	})
	require.NoError(t, err)

	r, ok := ens.Realization(1)
	require.True(t, ok)
	assert.Len(t, r.Files().ByType(FileTypeSummary), 1)
}

func TestProcessBatch_CancelledContext(t *testing.T) {
	root := buildEnsembleDir(t, 2)
	cfg, _ := ensembleConfig(t, 2)
	ens, err := NewScratchEnsemble("reektest", filepath.Join(root, "realization-*", "iter-0"), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = ens.ProcessBatch(ctx, []BatchStep{
		{Op: "load_scalar", Args: map[string]any{"localpath": "npv.txt"}},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ens.Scalars("npv.txt"))
}

func TestApply_VisitsEveryRealizationOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := buildEnsembleDir(t, 5)
	cfg, _ := ensembleConfig(t, 4)
	ens, err := NewScratchEnsemble("reektest", filepath.Join(root, "realization-*", "iter-0"), cfg)
	require.NoError(t, err)

	var visits atomic.Int64
	var indexSum atomic.Int64
	err = ens.Apply(context.Background(), func(r *ScratchRealization) error {
		visits.Add(1)
		indexSum.Add(int64(r.Index()))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), visits.Load())
	assert.Equal(t, int64(0+1+2+3+4), indexSum.Load())
}

func TestApply_ReturnsFirstError(t *testing.T) {
	root := buildEnsembleDir(t, 3)
	cfg, _ := ensembleConfig(t, 1)
	ens, err := NewScratchEnsemble("reektest", filepath.Join(root, "realization-*", "iter-0"), cfg)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = ens.Apply(context.Background(), func(r *ScratchRealization) error {
		if r.Index() == 1 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestScratchEnsemble_RemoveAndVirtualize(t *testing.T) {
	root := buildEnsembleDir(t, 3)
	cfg, _ := ensembleConfig(t, 1)
	ens, err := NewScratchEnsemble("reektest", filepath.Join(root, "realization-*", "iter-0"), cfg)
	require.NoError(t, err)

	ens.RemoveRealizations(1, 42)
	assert.Equal(t, []int{0, 2}, ens.Indices())

	virtual, err := ens.ToVirtual()
	require.NoError(t, err)
	assert.Equal(t, "reektest", virtual.Name())
	assert.Equal(t, []int{0, 2}, virtual.Indices())
	v, ok := virtual.Realization(2)
	require.True(t, ok)
	assert.True(t, IntValue(102).Equal(v.Parameters()["SEED"]))
	assert.True(t, IntValue(102).Equal(virtual.Parameters()[2]["SEED"]))
}

func TestScratchEnsemble_AggregateLoadedTable(t *testing.T) {
	root := buildEnsembleDir(t, 3)
	cfg, _ := ensembleConfig(t, 1)
	ens, err := NewScratchEnsemble("reektest", filepath.Join(root, "realization-*", "iter-0"), cfg)
	require.NoError(t, err)
	require.NoError(t, ens.ProcessBatch(context.Background(), []BatchStep{
		{Op: "load_smry", Args: map[string]any{"column_keys": "FOPT", "time_index": "yearly"}},
	}))

	mean, err := ens.Aggregate("unsmry--yearly", StatMean)
	require.NoError(t, err)
	fopt, ok := mean.Column("FOPT")
	require.True(t, ok)
	// Every realization shares the same fake summary.
	assert.Equal(t, []float64{0, 250}, fopt)
}
