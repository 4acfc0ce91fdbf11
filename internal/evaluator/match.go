package evaluator

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/relaydb/collections/internal/filter"
	"github.com/relaydb/collections/internal/platform/apperr"
	"github.com/relaydb/collections/internal/platform/constants"
	"github.com/relaydb/collections/internal/platform/validate"
)

// undefinedType is the sentinel dot-path resolution returns when a segment
// is missing or traverses through a non-object. It is deliberately a
// distinct type from nil so it can never compare equal to a stored JSON
// null.
type undefinedType struct{}

var undefined = undefinedType{}

// Evaluate reports whether doc matches f. A nil f — or any filter that
// compiles to no clause at all, such as {$and: []} — matches everything,
// mirroring the SQL compiler's literal-true substitution at the top level.
// It fails with the same InvalidArgument the SQL compiler raises when f
// nests past constants.MaxFilterDepth.
func Evaluate(f filter.Filter, doc map[string]any) (bool, error) {
	result, err := evalNode(f, doc, 1)
	if err != nil {
		return false, err
	}
	if result == nil {
		return true, nil
	}
	return *result, nil
}

// evalNode returns nil when f contributes no clause (only empty $and/$or
// subtrees do this), so callers combining several children can drop it
// exactly as the compiler drops an empty SQL fragment.
func evalNode(f filter.Filter, doc map[string]any, depth int) (*bool, error) {
	if f == nil {
		return nil, nil
	}
	if depth > constants.MaxFilterDepth {
		return nil, apperr.InvalidArgument(fmt.Sprintf("filter exceeds maximum depth of %d", constants.MaxFilterDepth))
	}

	switch v := f.(type) {
	case *filter.And:
		return evalConjunction(v.Children, doc, true, depth)
	case *filter.Or:
		return evalConjunction(v.Children, doc, false, depth)
	case *filter.Not:
		return evalNot(v, doc, depth)
	case *filter.FieldPredicate:
		b := evalFieldPredicate(v, doc)
		return &b, nil
	default:
		return boolPtr(false), nil
	}
}

func evalConjunction(children []filter.Filter, doc map[string]any, isAnd bool, depth int) (*bool, error) {
	sawClause := false
	for _, child := range children {
		result, err := evalNode(child, doc, depth+1)
		if err != nil {
			return nil, err
		}
		if result == nil {
			continue
		}
		sawClause = true
		if isAnd && !*result {
			return boolPtr(false), nil
		}
		if !isAnd && *result {
			return boolPtr(true), nil
		}
	}
	if !sawClause {
		return nil, nil
	}
	return boolPtr(isAnd), nil
}

func evalNot(n *filter.Not, doc map[string]any, depth int) (*bool, error) {
	result, err := evalNode(n.Child, doc, depth+1)
	if err != nil {
		return nil, err
	}
	if result == nil {
		// Child degenerates to the literal true predicate; negating it is false.
		return boolPtr(false), nil
	}
	return boolPtr(!*result), nil
}

func evalFieldPredicate(fp *filter.FieldPredicate, doc map[string]any) bool {
	resolved := resolvePath(doc, fp.Field)

	if fp.Value.Op != nil {
		return evalOperator(fp.Value.Op, resolved)
	}
	return deepEqual(resolved, fp.Value.Literal)
}

func evalOperator(op *filter.Operator, resolved any) bool {
	switch op.Kind {
	case filter.OpEq:
		return deepEqual(resolved, op.Operand)
	case filter.OpNe:
		return !deepEqual(resolved, op.Operand)
	case filter.OpGt, filter.OpGte, filter.OpLt, filter.OpLte:
		return evalComparison(op.Kind, resolved, op.Operand.(float64))
	case filter.OpIn:
		return membership(resolved, op.Operand.([]any))
	case filter.OpNin:
		return !membership(resolved, op.Operand.([]any))
	case filter.OpExists:
		return !isUndefinedOrNull(resolved) == op.Operand.(bool)
	case filter.OpRegex:
		return evalRegex(op.Operand.(string), resolved)
	case filter.OpContains:
		s, ok := resolved.(string)
		if !ok {
			return false
		}
		return strings.Contains(s, op.Operand.(string))
	default:
		return false
	}
}

func evalComparison(kind filter.OperatorKind, resolved any, operand float64) bool {
	value, ok := toFloat(resolved)
	if !ok {
		return false
	}
	switch kind {
	case filter.OpGt:
		return value > operand
	case filter.OpGte:
		return value >= operand
	case filter.OpLt:
		return value < operand
	case filter.OpLte:
		return value <= operand
	default:
		return false
	}
}

func membership(resolved any, values []any) bool {
	for _, v := range values {
		if deepEqual(resolved, v) {
			return true
		}
	}
	return false
}

// evalRegex fails closed: a pattern that does not compile yields no match
// rather than propagating an error, since the compile-time safety check
// ([validate.RegexPattern]) is the documented user-facing guarantee.
func evalRegex(pattern string, resolved any) bool {
	s, ok := resolved.(string)
	if !ok {
		return false
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func deepEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

func isUndefinedOrNull(v any) bool {
	if v == nil {
		return true
	}
	_, ok := v.(undefinedType)
	return ok
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func boolPtr(b bool) *bool { return &b }

// resolvePath walks doc by splitting field on ".". It returns the
// [undefined] sentinel the instant a segment is missing or the current
// value is not an object to descend into — never nil, so an explicit
// stored null stays distinguishable from an absent field.
func resolvePath(doc map[string]any, field string) any {
	var current any = doc
	for _, segment := range strings.Split(field, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return undefined
		}
		v, exists := m[segment]
		if !exists {
			return undefined
		}
		current = v
	}
	return current
}

// sortRows orders rows in place per the ordering contract: an explicit
// sort field with undefined/null pushed to the end regardless of
// direction, or (absent that) updated_at descending.
func sortRows(rows []*row, opts validate.QueryOptions) {
	if opts.HasSort() {
		field, descending := opts.SortField()
		sort.SliceStable(rows, func(i, j int) bool {
			return lessForSort(resolvePath(rows[i].doc, field), resolvePath(rows[j].doc, field), descending)
		})
		return
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].updatedAt > rows[j].updatedAt
	})
}

func lessForSort(a, b any, descending bool) bool {
	aMissing := isUndefinedOrNull(a)
	bMissing := isUndefinedOrNull(b)

	if aMissing && bMissing {
		return false
	}
	if aMissing {
		return false
	}
	if bMissing {
		return true
	}

	cmp, comparable := compareOrdered(a, b)
	if !comparable {
		return false
	}
	if descending {
		cmp = -cmp
	}
	return cmp < 0
}

// compareOrdered three-way compares a and b when both are the same
// orderable kind (number, string, bool). ok is false when they are not
// comparable, in which case original relative order is preserved.
func compareOrdered(a, b any) (cmp int, ok bool) {
	switch av := a.(type) {
	case float64:
		bv, ok2 := b.(float64)
		if !ok2 {
			return 0, false
		}
		return compareFloat(av, bv), true
	case string:
		bv, ok2 := b.(string)
		if !ok2 {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok2 := b.(bool)
		if !ok2 {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		if !av && bv {
			return -1, true
		}
		return 1, true
	default:
		return 0, false
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
