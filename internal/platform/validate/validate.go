/*
Package validate provides the shared validation primitives consumed by
every higher layer: the filter compiler, the SQL-backed collection engine,
the in-memory evaluator, and the tenant façade. None of these functions
perform I/O — they are synchronous boundary checks, so callers never
suspend on them.
*/
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/relaydb/collections/internal/platform/apperr"
	"github.com/relaydb/collections/internal/platform/constants"
	"github.com/relaydb/collections/pkg/pointer"
)

// fieldNameRegex is the sole shape a dot-separated field path may take.
// It is intentionally conservative: no characters an attacker could use to
// break out of a literal `json_extract(data,'$.<field>')` interpolation.
var fieldNameRegex = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)

// nestedQuantifierRegex is a coarse, intentional over-approximation: it
// matches the classic catastrophic-backtracking shapes — a quantified
// group itself quantified, or a quantified group nested inside another
// group — without attempting to fully parse the pattern.
var nestedQuantifierRegex = regexp.MustCompile(`(\([^)]*[+*][^)]*\))[+*]|\([^)]*\([^)]*[+*]`)

// DocumentID fails with InvalidArgument when id is not a non-empty string.
func DocumentID(id string) error {
	if id == "" {
		return apperr.InvalidArgument("document id must be a non-empty string")
	}
	return nil
}

// Document fails with InvalidArgument when doc is null, a non-object, or an
// array. Documents are represented internally as map[string]any once
// decoded; this check runs against that decoded form.
func Document(doc any) error {
	if doc == nil {
		return apperr.InvalidArgument("document must not be null")
	}
	if _, ok := doc.(map[string]any); !ok {
		return apperr.InvalidArgument(fmt.Sprintf("document must be a JSON object, got %T", doc))
	}
	return nil
}

// QueryOptions is the normalized shape of a caller's query options:
// limit/offset/sort, already reduced to a single sort field (array forms
// are normalized to this before they reach here).
type QueryOptions struct {
	Limit  *int
	Offset *int
	Sort   string // optionally "-"-prefixed field path; "" means unset
}

// HasLimit reports whether a limit was supplied.
func (o QueryOptions) HasLimit() bool { return o.Limit != nil }

// HasOffset reports whether an offset was supplied.
func (o QueryOptions) HasOffset() bool { return o.Offset != nil }

// HasSort reports whether a sort field was supplied.
func (o QueryOptions) HasSort() bool { return o.Sort != "" }

// SortField strips the optional leading "-" and reports the sort direction.
func (o QueryOptions) SortField() (field string, descending bool) {
	if strings.HasPrefix(o.Sort, "-") {
		return o.Sort[1:], true
	}
	return o.Sort, false
}

// ValidateQueryOptions fails with InvalidArgument when limit is present but not
// a positive integer at most constants.MaxLimit; when offset is present but
// negative; or when offset is present without limit.
func ValidateQueryOptions(o QueryOptions) error {
	if o.HasLimit() {
		limit := pointer.Val(o.Limit)
		if limit <= 0 || limit > constants.MaxLimit {
			return apperr.InvalidArgument(fmt.Sprintf("limit must be between 1 and %d", constants.MaxLimit))
		}
	}

	if o.HasOffset() {
		if *o.Offset < 0 {
			return apperr.InvalidArgument("offset must be non-negative")
		}
		if !o.HasLimit() {
			return apperr.InvalidArgument("offset requires limit to also be set")
		}
	}

	if o.HasSort() {
		field, _ := o.SortField()
		if err := FieldName(field); err != nil {
			return err
		}
	}

	return nil
}

// FieldName fails with InvalidArgument when f does not match
// ^[A-Za-z0-9_.]+$. It is used only where a field name is interpolated
// literally into SQL text — never for bound values.
func FieldName(f string) error {
	if !fieldNameRegex.MatchString(f) {
		return apperr.InvalidArgument(fmt.Sprintf("invalid field name: %q", f))
	}
	return nil
}

// RegexPattern fails with InvalidArgument when p exceeds
// constants.MaxRegexPatternLength, or matches the nested-quantifier
// catastrophic-backtracking signature. The check runs independent of
// whatever matcher eventually runs the pattern.
func RegexPattern(p string) error {
	if len(p) > constants.MaxRegexPatternLength {
		return apperr.InvalidArgument(fmt.Sprintf("regex pattern exceeds %d characters", constants.MaxRegexPatternLength))
	}
	if nestedQuantifierRegex.MatchString(p) {
		return apperr.InvalidArgument("regex pattern rejected: nested quantifier shape may backtrack catastrophically")
	}
	return nil
}
