// Package validation implements the mandatory-field contract shared by query
// objects and expression nodes.
//
// Types declare their required members as ordinary data by implementing
// Validatable. Validation walks that declaration; it never inspects struct
// tags and never mutates the value being checked.
package validation

import "reflect"

// Field names one declared-mandatory member together with its current value.
type Field struct {
	Name  string
	Value any
}

// Validatable is implemented by every type that declares mandatory members.
//
// Mandatory must be cheap and side-effect free: it is called on every
// validation and must reflect the current state of the receiver.
type Validatable interface {
	Mandatory() []Field
}

// Result reports the outcome of validating one value.
type Result struct {
	// Valid is true when every mandatory member holds a value.
	Valid bool

	// Missing lists the names of mandatory members that are absent,
	// in declaration order. Empty when Valid is true.
	Missing []string
}

// IsValid reports whether every mandatory member of v holds a value.
// A nil v is never valid.
func IsValid(v Validatable) bool {
	return Check(v).Valid
}

// Missing returns the names of the mandatory members of v that are absent.
func Missing(v Validatable) []string {
	return Check(v).Missing
}

// Check validates v and returns the full result.
//
// Check is a pure function: calling it any number of times yields the same
// result for an unchanged v and leaves v untouched.
func Check(v Validatable) Result {
	if isNil(v) {
		return Result{Valid: false, Missing: []string{"<nil>"}}
	}

	missing := []string{}
	for _, f := range v.Mandatory() {
		if Absent(f.Value) {
			missing = append(missing, f.Name)
		}
	}

	return Result{
		Valid:   len(missing) == 0,
		Missing: missing,
	}
}

// Absent reports whether value is unset: nil, a nil pointer, slice, map,
// channel, func or interface, or the zero value of its type.
func Absent(value any) bool {
	if value == nil {
		return true
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return rv.IsZero()
	}
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
