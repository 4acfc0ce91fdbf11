/*
Package filter models the declarative filter language and compiles it into
parameterized SQL WHERE fragments targeting a JSON-extracting SQL engine.

The wire format is a JSON object: logical keys ($and, $or, $not) and field
predicates, where a field's right-hand side is either a literal (implicit
equality) or an operator object carrying exactly one of eleven recognized
operators. [Parse] converts that dynamically-typed shape into the tagged
variant below exactly once, so [Compile] never sniffs keys at runtime — the
operator dispatch order becomes a property of [parseFieldValue] alone.
*/
package filter

// Filter is a node in the filter AST: a logical combinator or a field
// predicate. The concrete types below are the only implementations.
type Filter interface {
	isFilter()
}

// And is satisfied when every child matches. An empty And contributes no
// clause when compiled — it is the neutral element, not a literal truth
// value — see [Compile].
type And struct {
	Children []Filter
}

func (*And) isFilter() {}

// Or is satisfied when at least one child matches. An empty Or, like an
// empty And, contributes no clause.
type Or struct {
	Children []Filter
}

func (*Or) isFilter() {}

// Not is satisfied when its child does not match.
type Not struct {
	Child Filter
}

func (*Not) isFilter() {}

// FieldPredicate tests a single dot-addressed field against a literal value
// or an operator.
type FieldPredicate struct {
	Field string
	Value FilterValue
}

func (*FieldPredicate) isFilter() {}

// OperatorKind enumerates the recognized field operators. Its values are
// declared in the same order as operatorDispatchOrder, the fixed dispatch
// order applied when an operator object carries more keys than it should.
type OperatorKind int

const (
	OpEq OperatorKind = iota
	OpNe
	OpGt
	OpGte
	OpLt
	OpLte
	OpIn
	OpNin
	OpExists
	OpRegex
	OpContains
)

// Operator pairs a recognized operator with its already-typed operand:
// float64 for the comparison operators, []any for $in/$nin, bool for
// $exists, string for $regex/$contains, and the raw decoded value for
// $eq/$ne.
type Operator struct {
	Kind    OperatorKind
	Operand any
}

// FilterValue is the right-hand side of a field predicate: either a
// recognized Operator, or a Literal (IsObject distinguishes a bare object
// used for whole-value equality from a scalar).
type FilterValue struct {
	Op       *Operator
	Literal  any
	IsObject bool
}
