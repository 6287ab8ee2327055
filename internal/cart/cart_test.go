package cart

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_RejectsNonPositiveQuantity(t *testing.T) {
	c := New()
	assert.ErrorIs(t, c.Add("42", 0, ""), ErrInvalidQuantity)
	assert.ErrorIs(t, c.Add("42", -3, "M"), ErrInvalidQuantity)
	assert.True(t, c.IsEmpty())
}

func TestAdd_IsAdditive(t *testing.T) {
	twice := New()
	require.NoError(t, twice.Add("42", 2, ""))
	require.NoError(t, twice.Add("42", 3, ""))
	require.NoError(t, twice.Add("7", 1, "M"))
	require.NoError(t, twice.Add("7", 4, "M"))

	once := New()
	require.NoError(t, once.Add("42", 5, ""))
	require.NoError(t, once.Add("7", 5, "M"))

	assert.Equal(t, once.Snapshot().Serialize(), twice.Snapshot().Serialize())
}

func TestAdd_ShapeIsFixed(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("42", 1, ""))
	assert.ErrorIs(t, c.Add("42", 1, "M"), ErrShapeMismatch)

	require.NoError(t, c.Add("7", 1, "L"))
	assert.ErrorIs(t, c.Add("7", 1, ""), ErrShapeMismatch)
	assert.ErrorIs(t, c.Set("7", 2, ""), ErrShapeMismatch)
}

func TestSet_ZeroRemovesEntry(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("42", 3, ""))
	require.NoError(t, c.Set("42", 0, ""))
	assert.True(t, c.IsEmpty())
}

func TestSet_ZeroOnLastSizeCollapsesEntry(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("7", 1, "M"))
	require.NoError(t, c.Add("7", 2, "L"))

	require.NoError(t, c.Set("7", 0, "M"))
	e, ok := c.Snapshot().Entry("7")
	require.True(t, ok)
	assert.Equal(t, map[string]int{"L": 2}, e.Sizes())

	require.NoError(t, c.Set("7", 0, "L"))
	_, ok = c.Snapshot().Entry("7")
	assert.False(t, ok)
	assert.Equal(t, "{}", c.Snapshot().Serialize())
}

func TestSet_AbsoluteQuantity(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("42", 3, ""))
	require.NoError(t, c.Set("42", 1, ""))
	require.NoError(t, c.Set("9", 2, "S"))

	e, _ := c.Snapshot().Entry("42")
	assert.Equal(t, 1, e.Quantity())
	e, _ = c.Snapshot().Entry("9")
	assert.Equal(t, map[string]int{"S": 2}, e.Sizes())
}

func TestRemove_Missing(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("7", 1, "M"))

	assert.ErrorIs(t, c.Remove("42", ""), ErrNotFound)
	assert.ErrorIs(t, c.Remove("7", "XL"), ErrNotFound)

	e, ok := c.Snapshot().Entry("7")
	require.True(t, ok)
	assert.Equal(t, 1, e.Total())
}

func TestRemove_WholeSizedEntry(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("7", 1, "M"))
	require.NoError(t, c.Add("7", 1, "L"))
	require.NoError(t, c.Remove("7", ""))
	assert.True(t, c.IsEmpty())
}

func TestSnapshot_IsIsolated(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("7", 1, "M"))
	snap := c.Snapshot()

	require.NoError(t, c.Add("7", 5, "M"))
	require.NoError(t, c.Add("42", 1, ""))

	e, _ := snap.Entry("7")
	assert.Equal(t, 1, e.Sizes()["M"])
	assert.Equal(t, 1, snap.Len())

	sizes := e.Sizes()
	sizes["M"] = 99
	e, _ = snap.Entry("7")
	assert.Equal(t, 1, e.Sizes()["M"])
}

func TestSnapshot_LinesSorted(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("9", 2, ""))
	require.NoError(t, c.Add("10", 1, "S"))
	require.NoError(t, c.Add("10", 3, "L"))

	assert.Equal(t, []Line{
		{ProductID: "10", Size: "L", Quantity: 3},
		{ProductID: "10", Size: "S", Quantity: 1},
		{ProductID: "9", Quantity: 2},
	}, c.Snapshot().Lines())
	assert.Equal(t, 6, c.Snapshot().ProductCount())
}

func TestSerialize_OriginalBagFormat(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("42", 3, ""))
	require.NoError(t, c.Add("7", 2, "M"))
	require.NoError(t, c.Add("7", 1, "L"))

	assert.Equal(t, `{"42":3,"7":{"items_by_size":{"L":1,"M":2}}}`, c.Snapshot().Serialize())
}

func TestParseSnapshot_Canonicalizes(t *testing.T) {
	snap, err := ParseSnapshot(`{ "7": {"items_by_size": {"M": 2, "L": 1}},  "42": 3 }`)
	require.NoError(t, err)
	assert.Equal(t, `{"42":3,"7":{"items_by_size":{"L":1,"M":2}}}`, snap.Serialize())
}

func TestParseSnapshot_Rejects(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":       `bag`,
		"zero quantity":  `{"42": 0}`,
		"negative size":  `{"7": {"items_by_size": {"M": -1}}}`,
		"empty size map": `{"7": {"items_by_size": {}}}`,
		"string qty":     `{"42": "3"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSnapshot(raw)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestCart_JSONRoundTripKeepsShape(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("7", 2, "M"))
	data, err := json.Marshal(c)
	require.NoError(t, err)

	back := New()
	require.NoError(t, json.Unmarshal(data, back))
	assert.ErrorIs(t, back.Add("7", 1, ""), ErrShapeMismatch)
}
