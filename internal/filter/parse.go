package filter

import (
	"fmt"
	"sort"

	"github.com/relaydb/collections/internal/platform/apperr"
	"github.com/relaydb/collections/internal/platform/validate"
)

// operatorDispatchOrder is the fixed precedence the compiler documents at
// its public surface: when an operator object carries more than one
// recognized key, the first one in this list wins.
var operatorDispatchOrder = []string{
	"$eq", "$ne", "$gt", "$gte", "$lt", "$lte", "$in", "$nin", "$exists", "$regex", "$contains",
}

// Parse converts a decoded JSON filter object into a [Filter] tree. raw is
// typically the result of unmarshaling a caller's filter document into
// map[string]any.
func Parse(raw map[string]any) (Filter, error) {
	return parseObject(raw)
}

func parseObject(raw map[string]any) (Filter, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var children []Filter
	for _, key := range keys {
		val := raw[key]
		switch key {
		case "$and":
			sub, err := parseLogicalArray(val)
			if err != nil {
				return nil, err
			}
			children = append(children, &And{Children: sub})
		case "$or":
			sub, err := parseLogicalArray(val)
			if err != nil {
				return nil, err
			}
			children = append(children, &Or{Children: sub})
		case "$not":
			m, ok := val.(map[string]any)
			if !ok {
				return nil, apperr.InvalidArgument("$not requires a filter object")
			}
			child, err := parseObject(m)
			if err != nil {
				return nil, err
			}
			children = append(children, &Not{Child: child})
		default:
			fv, err := parseFieldValue(val)
			if err != nil {
				return nil, err
			}
			children = append(children, &FieldPredicate{Field: key, Value: fv})
		}
	}

	switch len(children) {
	case 0:
		return &And{Children: nil}, nil
	case 1:
		return children[0], nil
	default:
		return &And{Children: children}, nil
	}
}

func parseLogicalArray(val any) ([]Filter, error) {
	arr, ok := val.([]any)
	if !ok {
		return nil, apperr.InvalidArgument("$and/$or requires an array of filter objects")
	}
	out := make([]Filter, 0, len(arr))
	for _, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, apperr.InvalidArgument("$and/$or array elements must be filter objects")
		}
		f, err := parseObject(m)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func parseFieldValue(val any) (FilterValue, error) {
	obj, ok := val.(map[string]any)
	if !ok {
		return FilterValue{Literal: val}, nil
	}

	for _, opKey := range operatorDispatchOrder {
		opVal, present := obj[opKey]
		if !present {
			continue
		}
		op, err := parseOperator(opKey, opVal)
		if err != nil {
			return FilterValue{}, err
		}
		return FilterValue{Op: op}, nil
	}

	// No recognized operator key: the whole object is the literal to match.
	return FilterValue{Literal: obj, IsObject: true}, nil
}

var comparisonKinds = map[string]OperatorKind{
	"$gt":  OpGt,
	"$gte": OpGte,
	"$lt":  OpLt,
	"$lte": OpLte,
}

func parseOperator(key string, val any) (*Operator, error) {
	switch key {
	case "$eq":
		return &Operator{Kind: OpEq, Operand: val}, nil
	case "$ne":
		return &Operator{Kind: OpNe, Operand: val}, nil
	case "$gt", "$gte", "$lt", "$lte":
		num, ok := toFloat(val)
		if !ok {
			return nil, apperr.InvalidArgument(fmt.Sprintf("%s requires a numeric operand", key))
		}
		return &Operator{Kind: comparisonKinds[key], Operand: num}, nil
	case "$in", "$nin":
		arr, ok := val.([]any)
		if !ok {
			return nil, apperr.InvalidArgument(fmt.Sprintf("%s requires an array operand", key))
		}
		kind := OpIn
		if key == "$nin" {
			kind = OpNin
		}
		return &Operator{Kind: kind, Operand: arr}, nil
	case "$exists":
		b, ok := val.(bool)
		if !ok {
			return nil, apperr.InvalidArgument("$exists requires a boolean operand")
		}
		return &Operator{Kind: OpExists, Operand: b}, nil
	case "$regex":
		s, ok := val.(string)
		if !ok {
			return nil, apperr.InvalidArgument("$regex requires a string operand")
		}
		if err := validate.RegexPattern(s); err != nil {
			return nil, err
		}
		return &Operator{Kind: OpRegex, Operand: s}, nil
	case "$contains":
		s, ok := val.(string)
		if !ok {
			return nil, apperr.InvalidArgument("$contains requires a string operand")
		}
		return &Operator{Kind: OpContains, Operand: s}, nil
	}
	return nil, apperr.Internal(fmt.Errorf("filter: unreachable operator key %q", key))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
