package sqlexpr

import "github.com/roach88/sqlgate/internal/validation"

// LogicalOp tags one step of a Logical tree.
type LogicalOp int

const (
	opNone LogicalOp = iota
	opSeed
	OpAnd
	OpOr
	OpNot
	OpBetween
	OpExists
	OpIn
	OpNotIn
)

func (op LogicalOp) String() string {
	switch op {
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpNot:
		return "NOT"
	case OpBetween:
		return "BETWEEN"
	case OpExists:
		return "EXISTS"
	case OpIn:
		return "IN"
	case OpNotIn:
		return "NOT IN"
	default:
		return ""
	}
}

// Logical is an immutable tree of logical combinators.
//
// Each combinator returns a new node whose left side is the receiver and
// whose right side is the operand; the receiver is never modified, so a
// partially built tree can be shared and extended in several directions.
//
//	cond := sqlexpr.NewLogical(true).
//		And(sqlexpr.Str("a=1")).
//		Or(sqlexpr.Str("b=2"))
//	cond.SQL() // ((a=1) OR (b=2))
//
// Grouping follows call order, not operator precedence: with parentheses on,
// every step wraps everything accumulated so far in one new pair. The first
// And, Or or Exists on an empty tree seeds it with the operand. Not, Between,
// In and NotIn need something to apply to and render nothing on an empty
// tree.
type Logical struct {
	parens  bool
	op      LogicalOp
	left    *Logical
	operand Expression
}

// NewLogical returns an empty tree. useParentheses applies to every node
// derived from it.
func NewLogical(useParentheses bool) *Logical {
	return &Logical{parens: useParentheses}
}

// Of returns a tree seeded with e rendered as-is, typically a column that a
// following Between, In or NotIn applies to.
//
//	sqlexpr.Of(sqlexpr.Str("id"), false).In(sqlexpr.NewArray(false, 1, 2)) // id IN (1, 2)
func Of(e Expression, useParentheses bool) *Logical {
	return &Logical{parens: useParentheses, op: opSeed, operand: e}
}

// Where is shorthand for NewLogical(true).And(e).
func Where(e Expression) *Logical {
	return NewLogical(true).And(e)
}

func (*Logical) expressionNode() {}

func (l *Logical) derive(op LogicalOp, operand Expression) *Logical {
	n := &Logical{op: op, left: l, operand: operand}
	if l != nil {
		n.parens = l.parens
	}
	return n
}

// UseParentheses reports whether the tree groups each step.
func (l *Logical) UseParentheses() bool {
	return l != nil && l.parens
}

// Op returns the combinator of the outermost node.
func (l *Logical) Op() LogicalOp {
	if l == nil {
		return opNone
	}
	return l.op
}

// Empty reports whether nothing has been combined yet.
func (l *Logical) Empty() bool {
	return l.SQL() == ""
}

func (l *Logical) And(e Expression) *Logical { return l.derive(OpAnd, e) }

func (l *Logical) Or(e Expression) *Logical { return l.derive(OpOr, e) }

// Not negates everything accumulated so far.
func (l *Logical) Not() *Logical { return l.derive(OpNot, nil) }

// Between appends "BETWEEN e"; e is usually a Str("x AND y").
func (l *Logical) Between(e Expression) *Logical { return l.derive(OpBetween, e) }

func (l *Logical) Exists(e Expression) *Logical { return l.derive(OpExists, e) }

func (l *Logical) In(e Expression) *Logical { return l.derive(OpIn, e) }

func (l *Logical) NotIn(e Expression) *Logical { return l.derive(OpNotIn, e) }

// SQL renders the tree by walking it from the first combinator outwards.
func (l *Logical) SQL() string {
	if l == nil || l.op == opNone {
		return ""
	}

	acc := l.left.SQL()
	var operand string
	if l.operand != nil {
		operand = l.operand.SQL()
	}

	switch l.op {
	case opSeed:
		return operand

	case OpAnd, OpOr:
		if acc == "" {
			if l.parens {
				return group(operand)
			}
			return operand
		}
		if l.parens {
			return "(" + acc + " " + l.op.String() + " " + group(operand) + ")"
		}
		return acc + " " + l.op.String() + " " + operand

	case OpNot:
		if acc == "" {
			return ""
		}
		if l.parens {
			return "(NOT (" + acc + "))"
		}
		return "NOT " + acc

	case OpBetween:
		if acc == "" {
			return ""
		}
		return paren(acc+" BETWEEN "+operand, l.parens)

	case OpIn, OpNotIn:
		if acc == "" {
			return ""
		}
		return paren(acc+" "+l.op.String()+" ("+operand+")", l.parens)

	case OpExists:
		exists := paren("EXISTS ("+operand+")", l.parens)
		if acc == "" {
			return exists
		}
		if l.parens {
			return "(" + acc + " AND " + exists + ")"
		}
		return acc + " AND " + exists
	}

	return ""
}

// group parenthesizes s unless it is already fully enclosed.
func group(s string) string {
	if enclosed(s) {
		return s
	}
	return "(" + s + ")"
}

// Mandatory declares the rendered fragment as required: an empty tree is
// not a usable condition.
func (l *Logical) Mandatory() []validation.Field {
	return []validation.Field{{Name: "expression", Value: l.SQL()}}
}
