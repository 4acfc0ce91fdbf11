package filter

import (
	"fmt"

	"github.com/relaydb/collections/internal/platform/apperr"
	"github.com/relaydb/collections/internal/platform/validate"
	"github.com/relaydb/collections/pkg/pointer"
)

// ParseQueryOptions converts the wire form of a caller's query options —
// limit, offset, and a sort that may be a bare field string, a
// "-"-prefixed field string, or an array of {field, order} objects — into
// a normalized, validated [validate.QueryOptions]. Only the first element
// of an array-form sort is honored; only one sort field is supported.
func ParseQueryOptions(raw map[string]any) (validate.QueryOptions, error) {
	var opts validate.QueryOptions

	if raw == nil {
		return opts, nil
	}

	if rawLimit, ok := raw["limit"]; ok {
		n, ok := toFloat(rawLimit)
		if !ok {
			return opts, apperr.InvalidArgument("limit must be a number")
		}
		opts.Limit = pointer.To(int(n))
	}

	if rawOffset, ok := raw["offset"]; ok {
		n, ok := toFloat(rawOffset)
		if !ok {
			return opts, apperr.InvalidArgument("offset must be a number")
		}
		opts.Offset = pointer.To(int(n))
	}

	if rawSort, ok := raw["sort"]; ok {
		sort, err := normalizeSort(rawSort)
		if err != nil {
			return opts, err
		}
		opts.Sort = sort
	}

	if err := validate.ValidateQueryOptions(opts); err != nil {
		return opts, err
	}

	return opts, nil
}

func normalizeSort(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []any:
		if len(v) == 0 {
			return "", nil
		}
		first, ok := v[0].(map[string]any)
		if !ok {
			return "", apperr.InvalidArgument("sort array elements must be {field, order} objects")
		}
		field, ok := first["field"].(string)
		if !ok || field == "" {
			return "", apperr.InvalidArgument("sort array elements require a string field")
		}
		order, _ := first["order"].(string)
		if order == "desc" {
			return "-" + field, nil
		}
		return field, nil
	default:
		return "", apperr.InvalidArgument(fmt.Sprintf("sort must be a string or array, got %T", raw))
	}
}
