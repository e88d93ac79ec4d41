package isolation

import (
	"fmt"
	"strings"
)

// CondOp is the closed set of filter comparison operators. Parsed or
// constructed at the boundary; the repository rejects anything else.
type CondOp uint8

const (
	OpEq CondOp = iota + 1
	OpNotEq
	OpGt
	OpLt
	OpLike
)

func (op CondOp) sql() (string, bool) {
	switch op {
	case OpEq:
		return "=", true
	case OpNotEq:
		return "<>", true
	case OpGt:
		return ">", true
	case OpLt:
		return "<", true
	case OpLike:
		return "LIKE", true
	default:
		return "", false
	}
}

// Cond is one caller-supplied predicate. Conds are always ANDed together,
// and ANDed with the implicit tenant predicate under TableLevel; there is no
// way to OR past the tenant boundary.
type Cond struct {
	Column string
	Op     CondOp
	Value  any
}

// Filter bounds a FindMany query. A zero filter returns the first
// DefaultLimit rows for the scope's tenant.
type Filter struct {
	Conds   []Cond
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

// DefaultLimit keeps unbounded scans out of the data plane. Results are
// always finite.
const DefaultLimit = 500

// Eq is shorthand for an equality condition.
func Eq(column string, value any) Cond {
	return Cond{Column: column, Op: OpEq, Value: value}
}

// buildWhere renders predicates into an SQL fragment with positional
// placeholders, validating every column against the allowed set so caller
// input can never name an arbitrary column.
func buildWhere(conds []Cond, allowed map[string]bool, args []any) (string, []any, error) {
	if len(conds) == 0 {
		return "", args, nil
	}
	clauses := make([]string, 0, len(conds))
	for _, cond := range conds {
		if !allowed[cond.Column] {
			return "", nil, fmt.Errorf("unknown filter column %q", cond.Column)
		}
		op, ok := cond.Op.sql()
		if !ok {
			return "", nil, fmt.Errorf("unknown filter operator %d", cond.Op)
		}
		args = append(args, cond.Value)
		clauses = append(clauses, fmt.Sprintf("%s %s $%d", cond.Column, op, len(args)))
	}
	return strings.Join(clauses, " AND "), args, nil
}

// buildTail renders ORDER BY / LIMIT / OFFSET, enforcing the default limit.
func buildTail(f Filter, allowed map[string]bool) (string, error) {
	var b strings.Builder
	if f.OrderBy != "" {
		if !allowed[f.OrderBy] {
			return "", fmt.Errorf("unknown order column %q", f.OrderBy)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(f.OrderBy)
		if f.Desc {
			b.WriteString(" DESC")
		}
	}
	limit := f.Limit
	if limit <= 0 || limit > DefaultLimit {
		limit = DefaultLimit
	}
	fmt.Fprintf(&b, " LIMIT %d", limit)
	if f.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", f.Offset)
	}
	return b.String(), nil
}
