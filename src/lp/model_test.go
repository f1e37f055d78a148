package lp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel_AddCols_ReturnsFirstIndexAndClampsBinary(t *testing.T) {
	m := NewModel("cols")
	first := m.AddCols(3, 2, -5, 5, Binary)
	second := m.AddCols(2, 1, 0, math.Inf(1), Continuous)

	assert.Equal(t, 0, first)
	assert.Equal(t, 3, second)
	assert.Equal(t, 5, m.NumCols())
	assert.Equal(t, 0.0, m.ColLower[0])
	assert.Equal(t, 1.0, m.ColUpper[2])
	assert.True(t, math.IsInf(m.ColUpper[4], 1))
	assert.True(t, m.IsMIP())
}

func TestModel_Rows_MergesDuplicatesAndDropsZeros(t *testing.T) {
	m := NewModel("rows")
	m.AddCols(3, 0, 0, 1, Continuous)
	m.AddLessEqual(4, Term{Col: 2, Val: 1}, Term{Col: 0, Val: 2}, Term{Col: 2, Val: 3})
	m.AddEquality(1, Term{Col: 1, Val: 1}, Term{Col: 1, Val: -1}, Term{Col: 0, Val: 1})

	rows := m.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []Term{{Col: 0, Val: 2}, {Col: 2, Val: 4}}, rows[0])
	assert.Equal(t, []Term{{Col: 0, Val: 1}}, rows[1])
}

func TestModel_Validate_RejectsInvertedBounds(t *testing.T) {
	m := NewModel("bad")
	m.AddCols(1, 0, 0, 1, Continuous)
	m.AddRow(3, 2, Term{Col: 0, Val: 1})

	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 0")
}

func TestModel_Validate_RejectsOutOfRangeNonzero(t *testing.T) {
	m := NewModel("bad")
	m.AddCols(1, 0, 0, 1, Continuous)
	m.AddLessEqual(1, Term{Col: 4, Val: 1})

	assert.Error(t, m.Validate())
}

func TestModel_Objective_IncludesOffset(t *testing.T) {
	m := NewModel("obj")
	m.AddCols(2, 3, 0, 10, Continuous)
	m.Offset = 7

	assert.InDelta(t, 7+3*2+3*4, m.Objective([]float64{2, 4}), 1e-12)
}

func TestModel_Clone_IsIndependent(t *testing.T) {
	m := NewModel("orig")
	m.AddCols(2, 1, 0, 1, Integer)
	m.AddLessEqual(1, Term{Col: 0, Val: 1}, Term{Col: 1, Val: 1})

	c := m.Clone()
	c.ColCosts[0] = 99
	c.RowUpper[0] = 5

	assert.Equal(t, 1.0, m.ColCosts[0])
	assert.Equal(t, 1.0, m.RowUpper[0])
	assert.Equal(t, m.ConstMatrix, c.ConstMatrix)
}

func TestModel_String_CountsKinds(t *testing.T) {
	m := NewModel("desc")
	m.AddCols(2, 0, 0, 1, Binary)
	m.AddCols(1, 0, 0, 9, Integer)
	m.AddCols(4, 0, 0, 9, Continuous)

	assert.Contains(t, m.String(), "7 columns (2 binary, 1 integer, 4 continuous)")
}
