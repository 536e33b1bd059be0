package attrs

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmvandoren/vol2bird/internal/engine"
)

func newBridge() (*Bridge, *engine.Constants) {
	c := engine.DefaultConstants()
	return New(&c), &c
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{CellDbzMin, NGatesCellMin}, Names())

	k, err := KindOf(NGatesCellMin)
	require.NoError(t, err)
	assert.Equal(t, KindInt, k)
	k, err = KindOf(CellDbzMin)
	require.NoError(t, err)
	assert.Equal(t, "float", k.String())

	_, err = KindOf("constants_rangeMax")
	assert.True(t, errors.Is(err, ErrUnknownAttribute))
}

func TestGet_NaturalTypes(t *testing.T) {
	b, _ := newBridge()

	v, err := b.Get(NGatesCellMin)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	v, err = b.Get(CellDbzMin)
	require.NoError(t, err)
	assert.Equal(t, 15.0, v)
}

func TestSetGet_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		attr  string
		value any
		want  any
	}{
		{"int into int", NGatesCellMin, 7, 7},
		{"int64 into int", NGatesCellMin, int64(12), 12},
		{"uint8 into int", NGatesCellMin, uint8(3), 3},
		{"float truncates", NGatesCellMin, 7.9, 7},
		{"negative float truncates toward zero", NGatesCellMin, -2.7, -2},
		{"json number into int", NGatesCellMin, json.Number("21"), 21},
		{"float into float", CellDbzMin, 12.25, 12.25},
		{"float32 widens", CellDbzMin, float32(0.5), 0.5},
		{"int widens", CellDbzMin, 20, 20.0},
		{"uint64 widens", CellDbzMin, uint64(4), 4.0},
		{"json number into float", CellDbzMin, json.Number("-3.5"), -3.5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, _ := newBridge()
			require.NoError(t, b.Set(tc.attr, tc.value))
			got, err := b.Get(tc.attr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSet_MutatesConstantsInPlace(t *testing.T) {
	b, c := newBridge()
	require.NoError(t, b.Set(NGatesCellMin, 4))
	require.NoError(t, b.Set(CellDbzMin, 9.5))

	assert.Equal(t, 4, c.NGatesCellMin)
	assert.Equal(t, 9.5, c.CellDbzMin)
	assert.Equal(t, 30, c.NLayers, "unexposed constants are untouched")
}

func TestUnknownAttribute(t *testing.T) {
	b, c := newBridge()
	before := *c

	_, err := b.Get("bogus")
	assert.True(t, errors.Is(err, ErrUnknownAttribute))

	err = b.Set("bogus", 1)
	assert.True(t, errors.Is(err, ErrUnknownAttribute))
	assert.Equal(t, before, *c)
}

func TestSet_TypeMismatch(t *testing.T) {
	tests := []struct {
		name  string
		attr  string
		value any
	}{
		{"string into float", CellDbzMin, "not-a-number"},
		{"numeric string into int", NGatesCellMin, "5"},
		{"bool", NGatesCellMin, true},
		{"nil", CellDbzMin, nil},
		{"bad json number", CellDbzMin, json.Number("x")},
		{"nan into int", NGatesCellMin, math.NaN()},
		{"inf into int", NGatesCellMin, math.Inf(1)},
		{"overflow into int", NGatesCellMin, 1e12},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, c := newBridge()
			before := *c

			err := b.Set(tc.attr, tc.value)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTypeMismatch), "got %v", err)
			assert.Equal(t, before, *c)
		})
	}
}

func TestSet_MismatchMessage(t *testing.T) {
	b, _ := newBridge()
	err := b.Set(CellDbzMin, "x")
	assert.Contains(t, err.Error(), "constants_cellDbzMin must be number")
}
