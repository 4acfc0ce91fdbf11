package filter_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydb/collections/internal/filter"
)

func mustParse(t *testing.T, raw map[string]any) filter.Filter {
	t.Helper()
	f, err := filter.Parse(raw)
	require.NoError(t, err)
	return f
}

func TestCompile_EmptyFilter(t *testing.T) {
	sql, args, err := filter.Compile(nil)
	require.NoError(t, err)
	assert.Equal(t, "1=1", sql)
	assert.Empty(t, args)
}

func TestCompile_EmptyAndOr(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"empty_and", map[string]any{"$and": []any{}}},
		{"empty_or", map[string]any{"$or": []any{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := mustParse(t, tt.raw)
			sql, args, err := filter.Compile(f)
			require.NoError(t, err)
			assert.Equal(t, "1=1", sql)
			assert.Empty(t, args)
		})
	}
}

func TestCompile_ImplicitEquality(t *testing.T) {
	f := mustParse(t, map[string]any{"name": "Alice"})
	sql, args, err := filter.Compile(f)
	require.NoError(t, err)
	assert.Equal(t, "json_extract(data,'$.name') = ?", sql)
	assert.Equal(t, []any{"Alice"}, args)
}

func TestCompile_BooleanNormalization(t *testing.T) {
	f := mustParse(t, map[string]any{"active": true})
	sql, args, err := filter.Compile(f)
	require.NoError(t, err)
	assert.Equal(t, "json_extract(data,'$.active') = ?", sql)
	assert.Equal(t, []any{1}, args)
}

func TestCompile_ComparisonOperators(t *testing.T) {
	f := mustParse(t, map[string]any{"price": map[string]any{"$gt": float64(500)}})
	sql, args, err := filter.Compile(f)
	require.NoError(t, err)
	assert.Equal(t, "CAST(json_extract(data,'$.price') AS REAL) > ?", sql)
	assert.Equal(t, []any{float64(500)}, args)
}

func TestCompile_InEmptyArray(t *testing.T) {
	f := mustParse(t, map[string]any{"status": map[string]any{"$in": []any{}}})
	sql, args, err := filter.Compile(f)
	require.NoError(t, err)
	assert.Equal(t, "1=0", sql)
	assert.Empty(t, args)
}

func TestCompile_NinEmptyArray(t *testing.T) {
	f := mustParse(t, map[string]any{"status": map[string]any{"$nin": []any{}}})
	sql, args, err := filter.Compile(f)
	require.NoError(t, err)
	assert.Equal(t, "1=1", sql)
	assert.Empty(t, args)
}

func TestCompile_InMembership(t *testing.T) {
	f := mustParse(t, map[string]any{"status": map[string]any{"$in": []any{"a", "b"}}})
	sql, args, err := filter.Compile(f)
	require.NoError(t, err)
	assert.Equal(t, "json_extract(data,'$.status') IN (?, ?)", sql)
	assert.Equal(t, []any{"a", "b"}, args)
}

func TestCompile_Exists(t *testing.T) {
	f := mustParse(t, map[string]any{"email": map[string]any{"$exists": true}})
	sql, args, err := filter.Compile(f)
	require.NoError(t, err)
	assert.Equal(t, "json_extract(data,'$.email') IS NOT NULL", sql)
	assert.Empty(t, args)
}

func TestCompile_Contains(t *testing.T) {
	f := mustParse(t, map[string]any{"bio": map[string]any{"$contains": "100%_done"}})
	sql, args, err := filter.Compile(f)
	require.NoError(t, err)
	assert.Equal(t, "json_extract(data,'$.bio') LIKE ? ESCAPE '\\'", sql)
	assert.Equal(t, []any{`%100\%\_done%`}, args)
}

func TestCompile_LogicalComposition(t *testing.T) {
	f := mustParse(t, map[string]any{
		"$and": []any{
			map[string]any{"category": "e"},
			map[string]any{"inStock": true},
		},
	})
	sql, args, err := filter.Compile(f)
	require.NoError(t, err)
	assert.Equal(t, "(json_extract(data,'$.category') = ? AND json_extract(data,'$.inStock') = ?)", sql)
	assert.Equal(t, []any{"e", 1}, args)
}

func TestCompile_DispatchOrderPrefersFirstRecognizedKey(t *testing.T) {
	f := mustParse(t, map[string]any{"age": map[string]any{"$gt": float64(1), "$lt": float64(10)}})
	sql, _, err := filter.Compile(f)
	require.NoError(t, err)
	assert.Contains(t, sql, ">")
	assert.NotContains(t, sql, "<")
}

func TestCompile_DepthLimit(t *testing.T) {
	raw := map[string]any{"leaf": "value"}
	for i := 0; i < 9; i++ {
		raw = map[string]any{"$and": []any{raw}}
	}
	f := mustParse(t, raw)
	_, _, err := filter.Compile(f)
	assert.NoError(t, err, "depth of exactly 10 must succeed")

	raw = map[string]any{"$and": []any{raw}}
	f = mustParse(t, raw)
	_, _, err = filter.Compile(f)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "10"))
}

func TestCompile_FieldNameRejectsInjectionAttempt(t *testing.T) {
	f := mustParse(t, map[string]any{"age; DROP TABLE _collections; --": "x"})
	_, _, err := filter.Compile(f)
	require.Error(t, err)
}

func TestCompile_UnrecognizedOperatorObjectFallsBackToExactMatch(t *testing.T) {
	f := mustParse(t, map[string]any{"address": map[string]any{"city": "NYC", "zip": "10001"}})
	sql, args, err := filter.Compile(f)
	require.NoError(t, err)
	assert.Equal(t, "json_extract(data,'$.address') = json(?)", sql)
	require.Len(t, args, 1)
	assert.JSONEq(t, `{"city":"NYC","zip":"10001"}`, args[0].(string))
}
