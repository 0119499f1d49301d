package table

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ints(vals ...int) []Value {
	out := make([]Value, len(vals))
	for i, v := range vals {
		out[i] = IntValue(v)
	}
	return out
}

func strs(vals ...string) []Value {
	out := make([]Value, len(vals))
	for i, v := range vals {
		out[i] = StringValue(v)
	}
	return out
}

// TestParseValue verifies that catalog tokens are typed the way they are written back
func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		kind Kind
		out  string
	}{
		{"12", Int, "12"},
		{"-3", Int, "-3"},
		{"10.0", Float, "10.0"},
		{"-0.25", Float, "-0.25"},
		{"1e-05", Float, "1e-05"},
		{"1.5e20", Float, "1.5e+20"},
		{"000001@Extract/job/mic.mrcs", String, "000001@Extract/job/mic.mrcs"},
		{"007", String, "007"},
		{"nan", String, "nan"},
		{"inf", String, "inf"},
		{"MotionCorr/job002/mic_1.mrc", String, "MotionCorr/job002/mic_1.mrc"},
	}

	for _, tt := range tests {
		v := ParseValue(tt.in)
		if v.Kind() != tt.kind {
			t.Errorf("ParseValue(%q) kind = %d, want %d", tt.in, v.Kind(), tt.kind)
		}
		if v.String() != tt.out {
			t.Errorf("ParseValue(%q).String() = %q, want %q", tt.in, v.String(), tt.out)
		}
	}
}

func TestFloatFormattingRoundTrips(t *testing.T) {
	for _, f := range []float64{0, 1, -90, 1.0 / 3.0, 123456.789, 1e-7, 2.5e17} {
		v := ParseValue(FloatValue(f).String())
		require.Equal(t, Float, v.Kind(), "value %v", f)
		got, ok := v.Float()
		require.True(t, ok)
		assert.Equal(t, f, got)
	}
}

func TestNewRejectsRaggedColumns(t *testing.T) {
	_, err := New([]string{"a", "b"}, [][]Value{ints(1, 2, 3), ints(1, 2)})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("Expected ErrLengthMismatch, got %v", err)
	}

	_, err = New([]string{"a", "a"}, [][]Value{ints(1), ints(2)})
	assert.ErrorIs(t, err, ErrDuplicateColumn)
}

func TestSetAndDrop(t *testing.T) {
	tbl, err := New([]string{"a", "b"}, [][]Value{ints(1, 2), ints(3, 4)})
	require.NoError(t, err)

	assert.ErrorIs(t, tbl.SetInts("c", []int{1}), ErrLengthMismatch)
	require.NoError(t, tbl.SetFloats("c", []float64{0.5, 1.5}))
	assert.Equal(t, []string{"a", "b", "c"}, tbl.Columns())

	assert.True(t, tbl.Drop("b"))
	assert.False(t, tbl.Drop("b"))
	assert.Equal(t, []string{"a", "c"}, tbl.Columns())

	c, err := tbl.Floats("c")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1.5}, c)

	_, err = tbl.Ints("missing")
	assert.ErrorIs(t, err, ErrNoColumn)
}

func TestIntsRejectsFractions(t *testing.T) {
	tbl, err := New([]string{"x"}, [][]Value{{FloatValue(1.0), FloatValue(2.5)}})
	require.NoError(t, err)
	_, err = tbl.Ints("x")
	assert.ErrorIs(t, err, ErrColumnType)
}

// TestWindow checks the clamped half-open window used for smoothing
func TestWindow(t *testing.T) {
	tests := []struct {
		index, low, high, size int
		lo, hi                 int
	}{
		{0, 3, 4, 10, 0, 4},
		{5, 3, 4, 10, 2, 9},
		{9, 3, 4, 10, 6, 10},
		{2, 3, 4, 3, 0, 3},
		{-5, 3, 4, 10, 0, 0},
		{20, 3, 4, 10, 10, 10},
	}
	for _, tt := range tests {
		lo, hi := Window(tt.index, tt.low, tt.high, tt.size)
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("Window(%d,%d,%d,%d) = [%d,%d), want [%d,%d)",
				tt.index, tt.low, tt.high, tt.size, lo, hi, tt.lo, tt.hi)
		}
	}
}

func TestWindowContainsIndex(t *testing.T) {
	for n := 1; n < 20; n++ {
		for i := 0; i < n; i++ {
			lo, hi := Window(i, 3, 4, n)
			if lo < 0 || hi > n || lo > i || i >= hi {
				t.Fatalf("Window(%d,3,4,%d) = [%d,%d) does not contain the index", i, n, lo, hi)
			}
		}
	}
}

func TestGroupByMergesOnlyAdjacentKeys(t *testing.T) {
	tbl, err := New([]string{"mic", "tube", "v"}, [][]Value{
		strs("a", "a", "b", "a"),
		ints(1, 1, 1, 1),
		ints(10, 11, 12, 13),
	})
	require.NoError(t, err)

	groups, err := GroupBy(tbl, "mic", "tube")
	require.NoError(t, err)
	require.Len(t, groups, 3)

	v, _ := groups[0].Ints("v")
	assert.Equal(t, []int{10, 11}, v)
	v, _ = groups[2].Ints("v")
	assert.Equal(t, []int{13}, v)

	_, err = GroupBy(tbl, "missing")
	assert.ErrorIs(t, err, ErrNoColumn)
}

func TestSortByIsStable(t *testing.T) {
	tbl, err := New([]string{"mic", "len", "order"}, [][]Value{
		strs("b", "a", "b", "a"),
		{FloatValue(2), FloatValue(5), FloatValue(1), FloatValue(5)},
		ints(0, 1, 2, 3),
	})
	require.NoError(t, err)

	sorted, err := SortBy(tbl, "mic", "len")
	require.NoError(t, err)

	order, _ := sorted.Ints("order")
	assert.Equal(t, []int{1, 3, 2, 0}, order)

	// the input is untouched
	order, _ = tbl.Ints("order")
	assert.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestSplitAt(t *testing.T) {
	tbl, err := New([]string{"v"}, [][]Value{ints(0, 1, 2, 3, 4, 5)})
	require.NoError(t, err)

	parts := SplitAt(tbl, []int{2, 5})
	require.Len(t, parts, 3)
	lens := []int{parts[0].Len(), parts[1].Len(), parts[2].Len()}
	assert.Equal(t, []int{2, 3, 1}, lens)

	v, _ := parts[1].Ints("v")
	assert.Equal(t, []int{2, 3, 4}, v)

	assert.Len(t, SplitAt(tbl, nil), 1)

	parts = SplitAt(tbl, []int{3, 3})
	require.Len(t, parts, 3)
	assert.Equal(t, 0, parts[1].Len())
}

func TestConcat(t *testing.T) {
	a, _ := New([]string{"x", "y"}, [][]Value{ints(1), ints(2)})
	b, _ := New([]string{"y", "x"}, [][]Value{ints(4), ints(3)})

	out, err := Concat(a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, out.Columns())
	x, _ := out.Ints("x")
	assert.Equal(t, []int{1, 3}, x)

	c, _ := New([]string{"x"}, [][]Value{ints(9)})
	_, err = Concat(a, c)
	assert.ErrorIs(t, err, ErrNoColumn)
}

func TestCompareOrdersNumbersBeforeStrings(t *testing.T) {
	assert.Equal(t, -1, Compare(IntValue(2), FloatValue(2.5)))
	assert.Equal(t, 0, Compare(IntValue(2), FloatValue(2)))
	assert.Equal(t, -1, Compare(IntValue(100), StringValue("a")))
	assert.Equal(t, 1, Compare(StringValue("b"), StringValue("a")))
}
