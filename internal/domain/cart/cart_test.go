package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMergesAndRefreshesSnapshot(t *testing.T) {
	c := New("u1")
	require.NoError(t, c.Add("p1", "v1", 2, decimal.NewFromInt(100)))
	require.NoError(t, c.Add("p1", "v1", 3, decimal.NewFromInt(90)))

	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(90).Equal(c.Items[0].PriceSnapshot))

	require.NoError(t, c.Add("p1", "v2", 1, decimal.NewFromInt(50)))
	assert.Len(t, c.Items, 2)
	assert.ErrorIs(t, c.Add("p1", "v3", 0, decimal.Zero), ErrInvalidQuantity)
}

func TestSetQuantity(t *testing.T) {
	c := New("u1")
	require.NoError(t, c.Add("p1", "v1", 2, decimal.NewFromInt(100)))

	require.NoError(t, c.SetQuantity("v1", 7, decimal.NewFromInt(110)))
	it, ok := c.Find("v1")
	require.True(t, ok)
	assert.Equal(t, 7, it.Quantity)

	require.NoError(t, c.SetQuantity("v1", 0, decimal.Zero))
	_, ok = c.Find("v1")
	assert.False(t, ok)

	assert.ErrorIs(t, c.SetQuantity("missing", 1, decimal.Zero), ErrItemNotFound)
}

func TestRemoveAndClear(t *testing.T) {
	c := New("u1")
	require.NoError(t, c.Add("p1", "v1", 1, decimal.NewFromInt(100)))
	require.NoError(t, c.Add("p1", "v2", 1, decimal.NewFromInt(100)))

	c.Remove("absent")
	assert.Len(t, c.Items, 2)
	c.Remove("v1")
	require.Len(t, c.Items, 1)
	assert.Equal(t, "v2", c.Items[0].VariantID)

	c.Clear()
	assert.NotNil(t, c.Items)
	assert.Empty(t, c.Items)
}

func TestCloneIsIndependent(t *testing.T) {
	c := New("u1")
	require.NoError(t, c.Add("p1", "v1", 1, decimal.NewFromInt(100)))
	clone := c.Clone()
	clone.Items[0].Quantity = 9
	assert.Equal(t, 1, c.Items[0].Quantity)
}
