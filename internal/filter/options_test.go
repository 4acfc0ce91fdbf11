package filter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydb/collections/internal/filter"
)

func TestParseQueryOptions_Nil(t *testing.T) {
	opts, err := filter.ParseQueryOptions(nil)
	require.NoError(t, err)
	assert.False(t, opts.HasLimit())
	assert.False(t, opts.HasOffset())
	assert.False(t, opts.HasSort())
}

func TestParseQueryOptions_BareSortString(t *testing.T) {
	opts, err := filter.ParseQueryOptions(map[string]any{"sort": "-price"})
	require.NoError(t, err)
	field, desc := opts.SortField()
	assert.Equal(t, "price", field)
	assert.True(t, desc)
}

func TestParseQueryOptions_ArraySortNormalizesToSingleField(t *testing.T) {
	opts, err := filter.ParseQueryOptions(map[string]any{
		"sort": []any{
			map[string]any{"field": "name", "order": "desc"},
			map[string]any{"field": "age", "order": "asc"},
		},
	})
	require.NoError(t, err)
	field, desc := opts.SortField()
	assert.Equal(t, "name", field)
	assert.True(t, desc)
}

func TestParseQueryOptions_OffsetWithoutLimitFails(t *testing.T) {
	_, err := filter.ParseQueryOptions(map[string]any{"offset": float64(10)})
	assert.Error(t, err)
}

func TestParseQueryOptions_LimitBoundary(t *testing.T) {
	_, err := filter.ParseQueryOptions(map[string]any{"limit": float64(10000)})
	assert.NoError(t, err)

	_, err = filter.ParseQueryOptions(map[string]any{"limit": float64(10001)})
	assert.Error(t, err)

	_, err = filter.ParseQueryOptions(map[string]any{"limit": float64(0)})
	assert.Error(t, err)
}
