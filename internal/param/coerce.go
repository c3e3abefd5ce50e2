package param

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// timeLayouts are tried in order when a string is bound to a time type.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"15:04:05",
}

// Coerce converts v to the Go representation of t, truncating character and
// binary values longer than size when size > 0. Nil and nil pointers become
// nil (NULL).
func Coerce(v any, t DBType, size int) (any, error) {
	v = deref(v)
	if v == nil {
		return nil, nil
	}

	switch t.class() {
	case classInt:
		return toInt64(v)
	case classBool:
		return toBool(v)
	case classFloat:
		return toFloat64(v)
	case classDecimal:
		return toDecimal(v)
	case classUUID:
		return toUUID(v)
	case classString:
		s := toString(v)
		if size > 0 && utf8.RuneCountInString(s) > size {
			s = string([]rune(s)[:size])
		}
		return s, nil
	case classBytes:
		b, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		if size > 0 && len(b) > size {
			b = b[:size]
		}
		return b, nil
	case classTime:
		return toTime(v)
	default:
		return v, nil
	}
}

func deref(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

func convErr(v any, target string) error {
	return fmt.Errorf("cannot convert %T to %s", v, target)
}

func toInt64(v any) (int64, error) {
	if d, ok := v.(decimal.Decimal); ok {
		if !d.IsInteger() {
			return 0, fmt.Errorf("decimal %s is not an integer", d)
		}
		return d.IntPart(), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("value %v is not an integer", f)
		}
		return int64(f), nil
	case reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}
		return 0, nil
	case reflect.String:
		return strconv.ParseInt(strings.TrimSpace(rv.String()), 10, 64)
	}
	return 0, convErr(v, "int64")
}

func toBool(v any) (bool, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0, nil
	case reflect.String:
		return strconv.ParseBool(strings.TrimSpace(rv.String()))
	}
	return false, convErr(v, "bool")
}

func toFloat64(v any) (float64, error) {
	if d, ok := v.(decimal.Decimal); ok {
		return d.InexactFloat64(), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.String:
		return strconv.ParseFloat(strings.TrimSpace(rv.String()), 64)
	}
	return 0, convErr(v, "float64")
}

func toDecimal(v any) (decimal.Decimal, error) {
	if d, ok := v.(decimal.Decimal); ok {
		return d, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(rv.Uint()), 0), nil
	case reflect.Float32, reflect.Float64:
		return decimal.NewFromFloat(rv.Float()), nil
	case reflect.String:
		return decimal.NewFromString(strings.TrimSpace(rv.String()))
	}
	return decimal.Decimal{}, convErr(v, "decimal")
}

func toUUID(v any) (uuid.UUID, error) {
	switch x := v.(type) {
	case uuid.UUID:
		return x, nil
	case [16]byte:
		return uuid.UUID(x), nil
	case string:
		return uuid.Parse(strings.TrimSpace(x))
	case []byte:
		if len(x) == 16 {
			return uuid.FromBytes(x)
		}
		return uuid.ParseBytes(x)
	case fmt.Stringer:
		return uuid.Parse(x.String())
	}
	return uuid.Nil, convErr(v, "uuid")
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func toBytes(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	case uuid.UUID:
		return x[:], nil
	}
	return nil, convErr(v, "[]byte")
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse %q as time", x)
	}
	return time.Time{}, convErr(v, "time")
}
