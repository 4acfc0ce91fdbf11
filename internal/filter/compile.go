package filter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/relaydb/collections/internal/platform/apperr"
	"github.com/relaydb/collections/internal/platform/constants"
	"github.com/relaydb/collections/internal/platform/validate"
)

// Compile translates f into a parameterized SQL WHERE fragment and its
// ordered bind values. A nil f (an empty top-level filter) compiles to the
// literal true predicate "1=1", as does any filter that degenerates to no
// clause at all (e.g. {$and: []}).
func Compile(f Filter) (string, []any, error) {
	params := make([]any, 0, 4)

	frag, err := compileNode(f, 1, &params)
	if err != nil {
		return "", nil, err
	}
	if frag == "" {
		frag = "1=1"
	}
	return frag, params, nil
}

func compileNode(f Filter, depth int, params *[]any) (string, error) {
	if f == nil {
		return "", nil
	}
	if depth > constants.MaxFilterDepth {
		return "", apperr.InvalidArgument(fmt.Sprintf("filter exceeds maximum depth of %d", constants.MaxFilterDepth))
	}

	switch v := f.(type) {
	case *And:
		return compileConjunction(v.Children, "AND", depth, params)
	case *Or:
		return compileConjunction(v.Children, "OR", depth, params)
	case *Not:
		return compileNot(v, depth, params)
	case *FieldPredicate:
		return compileFieldPredicate(v, params)
	default:
		return "", apperr.Internal(fmt.Errorf("filter: unknown node type %T", f))
	}
}

func compileConjunction(children []Filter, joiner string, depth int, params *[]any) (string, error) {
	frags := make([]string, 0, len(children))
	for _, child := range children {
		frag, err := compileNode(child, depth+1, params)
		if err != nil {
			return "", err
		}
		if frag != "" {
			frags = append(frags, frag)
		}
	}

	switch len(frags) {
	case 0:
		return "", nil
	case 1:
		return frags[0], nil
	default:
		return "(" + strings.Join(frags, " "+joiner+" ") + ")", nil
	}
}

func compileNot(n *Not, depth int, params *[]any) (string, error) {
	frag, err := compileNode(n.Child, depth+1, params)
	if err != nil {
		return "", err
	}
	if frag == "" {
		frag = "1=1"
	}
	return "NOT (" + frag + ")", nil
}

func compileFieldPredicate(fp *FieldPredicate, params *[]any) (string, error) {
	if err := validate.FieldName(fp.Field); err != nil {
		return "", err
	}

	extract := fmt.Sprintf("json_extract(data,'$.%s')", fp.Field)

	if fp.Value.Op != nil {
		return compileOperator(extract, fp.Value.Op, params)
	}

	if fp.Value.IsObject {
		encoded, err := json.Marshal(fp.Value.Literal)
		if err != nil {
			return "", apperr.Internal(fmt.Errorf("filter: encode literal object: %w", err))
		}
		*params = append(*params, string(encoded))
		return extract + " = json(?)", nil
	}

	*params = append(*params, normalizeBool(fp.Value.Literal))
	return extract + " = ?", nil
}

func compileOperator(extract string, op *Operator, params *[]any) (string, error) {
	switch op.Kind {
	case OpEq:
		*params = append(*params, normalizeBool(op.Operand))
		return extract + " = ?", nil
	case OpNe:
		*params = append(*params, normalizeBool(op.Operand))
		return extract + " != ?", nil
	case OpGt:
		*params = append(*params, op.Operand)
		return fmt.Sprintf("CAST(%s AS REAL) > ?", extract), nil
	case OpGte:
		*params = append(*params, op.Operand)
		return fmt.Sprintf("CAST(%s AS REAL) >= ?", extract), nil
	case OpLt:
		*params = append(*params, op.Operand)
		return fmt.Sprintf("CAST(%s AS REAL) < ?", extract), nil
	case OpLte:
		*params = append(*params, op.Operand)
		return fmt.Sprintf("CAST(%s AS REAL) <= ?", extract), nil
	case OpIn:
		return compileMembership(extract, op.Operand.([]any), true, params), nil
	case OpNin:
		return compileMembership(extract, op.Operand.([]any), false, params), nil
	case OpExists:
		if op.Operand.(bool) {
			return extract + " IS NOT NULL", nil
		}
		return extract + " IS NULL", nil
	case OpRegex:
		*params = append(*params, op.Operand.(string))
		return extract + " REGEXP ?", nil
	case OpContains:
		*params = append(*params, "%"+escapeLike(op.Operand.(string))+"%")
		return extract + " LIKE ? ESCAPE '\\'", nil
	default:
		return "", apperr.Internal(fmt.Errorf("filter: unknown operator kind %v", op.Kind))
	}
}

// compileMembership emits $in/$nin. An empty set degenerates to the
// documented trivial predicates instead of an empty IN (), which SQLite
// treats as a syntax error.
func compileMembership(extract string, values []any, include bool, params *[]any) string {
	if len(values) == 0 {
		if include {
			return "1=0"
		}
		return "1=1"
	}

	placeholders := make([]string, len(values))
	for i, v := range values {
		*params = append(*params, normalizeBool(v))
		placeholders[i] = "?"
	}

	op := "IN"
	if !include {
		op = "NOT IN"
	}
	return fmt.Sprintf("%s %s (%s)", extract, op, strings.Join(placeholders, ", "))
}

// normalizeBool reduces Go booleans to the integers SQLite's json_extract
// actually stores and compares against.
func normalizeBool(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return v
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
