package ensemble

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadedEnsemble builds n realizations with npv.txt and yearly summary loaded.
func loadedEnsemble(t *testing.T, n int) *ScratchEnsemble {
	t.Helper()
	root := buildEnsembleDir(t, n)
	cfg, _ := ensembleConfig(t, 2)
	ens, err := NewScratchEnsemble("reektest", filepath.Join(root, "realization-*", "iter-0"), cfg)
	require.NoError(t, err)
	require.NoError(t, ens.ProcessBatch(context.Background(), []BatchStep{
		{Op: "load_smry", Args: map[string]any{"time_index": "yearly"}},
		{Op: "load_scalar", Args: map[string]any{"localpath": "npv.txt"}},
	}))
	return ens
}

func columnSum(t *testing.T, tables map[int]*Table, col string) float64 {
	t.Helper()
	var sum float64
	for _, tbl := range tables {
		vals, ok := tbl.Column(col)
		require.True(t, ok, "column %s", col)
		for _, v := range vals {
			sum += v
		}
	}
	return sum
}

func paramSum(t *testing.T, params map[int]map[string]Value, key string) float64 {
	t.Helper()
	var sum float64
	for _, p := range params {
		f, ok := p[key].Float64()
		require.True(t, ok, "parameter %s", key)
		sum += f
	}
	return sum
}

func TestDiff_WithItselfIsZero(t *testing.T) {
	ens := loadedEnsemble(t, 4)
	diff := Diff(ens, ens)

	assert.Equal(t, []int{0, 1, 2, 3}, diff.Indices())
	params := diff.Parameters()
	require.Len(t, params, 4)
	assert.Zero(t, paramSum(t, params, "KRW1"))
	assert.True(t, IntValue(0).Equal(params[2]["SEED"]))

	yearly := diff.Table("unsmry--yearly")
	require.Len(t, yearly, 4)
	assert.Zero(t, columnSum(t, yearly, "FOPT"))
	assert.Equal(t, []string{"FOPR", "FOPT", "WOPR"}, yearly[0].Columns)

	for _, v := range diff.Scalars("npv.txt") {
		assert.True(t, IntValue(0).Equal(v))
	}
}

func TestScaled_HalfSumsToHalf(t *testing.T) {
	ens := loadedEnsemble(t, 4)
	half := Scaled(0.5, ens)

	fopt := columnSum(t, ens.Table("unsmry--yearly"), "FOPT")
	require.NotZero(t, fopt)
	assert.Equal(t, 0.5*fopt, columnSum(t, half.Table("unsmry--yearly"), "FOPT"))
	assert.Equal(t, 0.5*paramSum(t, ens.Parameters(), "KRW1"), paramSum(t, half.Parameters(), "KRW1"))

	// A single ensemble keeps its dates.
	assert.Equal(t, ens.Table("unsmry--yearly")[1].Dates, half.Table("unsmry--yearly")[1].Dates)
}

func TestLinearCombination_LongChainIsZero(t *testing.T) {
	ens := loadedEnsemble(t, 3)
	zero := Scaled(1, ens).Plus(4, ens).Plus(-2, ens).Plus(1, ens).Plus(-4, ens)

	assert.Zero(t, paramSum(t, zero.Parameters(), "KRW1"))
	assert.Zero(t, paramSum(t, zero.Parameters(), "SEED"))
	assert.Zero(t, columnSum(t, zero.Table("unsmry--yearly"), "FOPR"))

	// Nesting a combination is the same as flattening it.
	nested := Diff(LinearCombination(Term{Scale: 2, Ensemble: ens}), ens)
	assert.Equal(t, columnSum(t, ens.Table("unsmry--yearly"), "FOPT"),
		columnSum(t, nested.Table("unsmry--yearly"), "FOPT"))
}

func TestCombination_ToVirtualKeepsKeys(t *testing.T) {
	ens := loadedEnsemble(t, 3)
	zero := Scaled(1, ens).Plus(4, ens).Plus(-2, ens).Plus(1, ens).Plus(-4, ens)

	vzero := zero.ToVirtual("zero")
	assert.Equal(t, "zero", vzero.Name())
	assert.Equal(t, 3, vzero.Len())
	assert.Equal(t, []string{"npv.txt", "unsmry--yearly"}, zero.Keys())

	v, ok := vzero.Realization(1)
	require.True(t, ok)
	assert.Equal(t, "linear combination", v.Description())
	// The parameters file is carried as a dict and counts as a key.
	assert.Equal(t, []string{"npv.txt", ParametersFile, "unsmry--yearly"}, v.Keys())
	assert.True(t, IntValue(0).Equal(v.Parameters()["SEED"]))
	assert.Zero(t, columnSum(t, vzero.Table("unsmry--yearly"), "FOPT"))
}

func TestCombination_SparseEnsembles(t *testing.T) {
	ref := loadedEnsemble(t, 5)
	ior := loadedEnsemble(t, 5)
	ior.RemoveRealizations(3)

	diff := Diff(ior, ref)
	assert.Equal(t, []int{0, 1, 2, 4}, diff.Indices())
	assert.NotContains(t, diff.Parameters(), 3)
	assert.NotContains(t, diff.Table("unsmry--yearly"), 3)

	vref, err := ref.ToVirtual()
	require.NoError(t, err)

	// Drop the second date from realization 4 and FOPR from realization 2.
	r4, ok := vref.Realization(4)
	require.True(t, ok)
	full, ok := r4.Table("unsmry--yearly")
	require.True(t, ok)
	require.Equal(t, 2, full.Len())
	short := NewTable(full.Dates[:1])
	for _, col := range full.Columns {
		vals, _ := full.Column(col)
		require.NoError(t, short.AddColumn(col, vals[:1]))
	}
	r4.SetTable("unsmry--yearly", short)

	r2, ok := vref.Realization(2)
	require.True(t, ok)
	narrow, ok := r2.Table("unsmry--yearly")
	require.True(t, ok)
	narrow.DropColumn("FOPR")
	r2.SetTable("unsmry--yearly", narrow)

	diff = Diff(ior, vref)
	assert.Equal(t, []int{0, 1, 2, 4}, diff.Indices())
	yearly := diff.Table("unsmry--yearly")
	require.Len(t, yearly, 4)
	require.Equal(t, 1, yearly[4].Len())
	assert.True(t, full.Dates[0].Equal(yearly[4].Dates[0]))
	assert.Equal(t, 2, yearly[0].Len())
	assert.False(t, yearly[2].HasColumn("FOPR"))
	assert.True(t, yearly[1].HasColumn("FOPR"))
	assert.True(t, ior.Table("unsmry--yearly")[2].HasColumn("FOPR"))
}

func TestCombination_TextDropsOut(t *testing.T) {
	a := NewVirtualEnsemble("a",
		NewVirtualRealization(WithIndex(0), WithParameters(map[string]Value{
			"KRW1": RealValue(1.5), "FACIES": TextValue("sand"),
		})),
	)
	b := NewVirtualEnsemble("b",
		NewVirtualRealization(WithIndex(0), WithParameters(map[string]Value{
			"KRW1": RealValue(0.25), "FACIES": TextValue("sand"),
		})),
		NewVirtualRealization(WithIndex(1), WithParameters(map[string]Value{"KRW1": IntValue(1)})),
	)

	params := Diff(a, b).Parameters()
	require.Len(t, params, 1)
	assert.Equal(t, map[string]Value{"KRW1": RealValue(1.25)}, params[0])
}
