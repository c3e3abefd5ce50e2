package sqlexpr

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// timeLayout is the literal format used for time.Time values. SQL Server
// parses it unambiguously regardless of session language settings.
const timeLayout = "2006-01-02T15:04:05.000"

var decimalType = reflect.TypeFor[decimal.Decimal]()

// Literal renders v as a SQL literal: NULL for nil, bare text for numeric
// values and nested expressions, and a single-quoted string otherwise.
func Literal(v any) string {
	if v == nil {
		return "NULL"
	}
	if e, ok := v.(Expression); ok {
		return e.SQL()
	}
	if IsNumeric(reflect.TypeOf(v)) {
		return format(v)
	}
	return Quote(format(v))
}

// Quote wraps s in single quotes, doubling any embedded quote.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// IsNumeric reports whether values of type t render unquoted.
func IsNumeric(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t == decimalType {
		return true
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// quotesFor decides the quoting of a T value. Interface type parameters
// (T = any) defer to the dynamic type of the value.
func quotesFor[T any](value T) bool {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Interface {
		t = reflect.TypeOf(value)
	}
	return !IsNumeric(t)
}

// format renders v without quoting.
func format(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case Expression:
		return x.SQL()
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(timeLayout)
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// render formats value and wraps it in quotes when quoted is set.
func render(value any, quoted bool) string {
	if value == nil {
		return "NULL"
	}
	if quoted {
		return Quote(format(value))
	}
	return format(value)
}

// paren wraps s in one pair of parentheses when on is set.
func paren(s string, on bool) string {
	if on {
		return "(" + s + ")"
	}
	return s
}

// enclosed reports whether s is wrapped in a single matching pair of
// parentheses, so "(a) OR (b)" is not enclosed but "((a) OR (b))" is.
func enclosed(s string) bool {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return false
	}
	depth := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			inQuote = !inQuote
		case '(':
			if !inQuote {
				depth++
			}
		case ')':
			if !inQuote {
				depth--
				if depth == 0 && i < len(s)-1 {
					return false
				}
			}
		}
	}
	return depth == 0
}
