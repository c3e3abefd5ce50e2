package sqlexpr

import (
	"strings"

	"github.com/roach88/sqlgate/internal/validation"
)

// Array renders a list literal such as the operand of IN or a VALUES list.
//
// Items are joined with ", ". With Quote set every item becomes a quoted
// literal; with UseParentheses set every item is wrapped individually.
// Items that are themselves expressions render through their SQL method.
// An empty array renders the empty string.
type Array[T any] struct {
	Items          []T
	Quote          bool
	UseParentheses bool
}

// NewArray creates an array over items.
func NewArray[T any](quote bool, items ...T) *Array[T] {
	return &Array[T]{Items: items, Quote: quote}
}

func (*Array[T]) expressionNode() {}

// Append adds items to the end of the array.
func (a *Array[T]) Append(items ...T) *Array[T] {
	a.Items = append(a.Items, items...)
	return a
}

// Len returns the number of items.
func (a *Array[T]) Len() int {
	return len(a.Items)
}

func (a *Array[T]) SQL() string {
	if len(a.Items) == 0 {
		return ""
	}
	parts := make([]string, 0, len(a.Items))
	for _, item := range a.Items {
		parts = append(parts, paren(a.item(item), a.UseParentheses))
	}
	return strings.Join(parts, ", ")
}

func (a *Array[T]) item(item T) string {
	var v any = item
	if e, ok := v.(Expression); ok {
		return e.SQL()
	}
	return render(v, a.Quote)
}

func (a *Array[T]) Mandatory() []validation.Field {
	return []validation.Field{{Name: "items", Value: a.Items}}
}
