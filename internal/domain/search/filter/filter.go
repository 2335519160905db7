package filter

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MaxConditions is the maximum number of conditions in a single filter.
const MaxConditions = 16

// ErrUnsupportedOperator is returned for any operator other than equality.
var ErrUnsupportedOperator = errors.New("unsupported filter operator")

// Op is a comparison operator. Only equality is supported by the store contract.
type Op string

const (
	// OpEq matches documents whose field equals the value exactly.
	OpEq Op = "$eq"
)

// Kind tags the scalar type of a condition value.
type Kind int

const (
	// KindString is a string value matched against a TAG field.
	KindString Kind = iota
	// KindNumber is a numeric value matched against a NUMERIC field.
	KindNumber
)

// Value is a tagged scalar.
type Value struct {
	kind Kind
	str  string
	num  float64
}

// String creates a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number creates a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Kind returns the value tag.
func (v Value) Kind() Kind { return v.kind }

// Str returns the string payload.
func (v Value) Str() string { return v.str }

// Num returns the numeric payload.
func (v Value) Num() float64 { return v.num }

// Text renders the value the way it is stored in a hash field.
func (v Value) Text() string {
	if v.kind == KindNumber {
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	}
	return v.str
}

// Condition is a single field comparison.
type Condition struct {
	field string
	op    Op
	value Value
}

// NewCondition validates and creates a condition.
func NewCondition(field string, op Op, value Value) (Condition, error) {
	if field == "" {
		return Condition{}, fmt.Errorf("filter field is required")
	}
	if !isValidField(field) {
		return Condition{}, fmt.Errorf("invalid filter field %q", field)
	}
	if op != OpEq {
		return Condition{}, fmt.Errorf("%w: %q on field %q", ErrUnsupportedOperator, op, field)
	}
	if value.kind == KindString && value.str == "" {
		return Condition{}, fmt.Errorf("match value is required for field %q", field)
	}
	return Condition{field: field, op: op, value: value}, nil
}

// Eq is a shorthand for an equality condition on a string value.
func Eq(field, value string) (Condition, error) {
	return NewCondition(field, OpEq, String(value))
}

// Field returns the metadata field name.
func (c Condition) Field() string { return c.field }

// Op returns the operator.
func (c Condition) Op() Op { return c.op }

// Value returns the expected value.
func (c Condition) Value() Value { return c.value }

// Filter is a conjunction of conditions. The zero value matches everything.
type Filter struct {
	conditions []Condition
}

// New creates a filter from conditions.
func New(conditions ...Condition) (Filter, error) {
	if len(conditions) > MaxConditions {
		return Filter{}, fmt.Errorf("too many filter conditions (max %d)", MaxConditions)
	}
	return Filter{conditions: conditions}, nil
}

// Conditions returns the conditions in order.
func (f Filter) Conditions() []Condition { return f.conditions }

// IsEmpty reports whether the filter has no conditions.
func (f Filter) IsEmpty() bool { return len(f.conditions) == 0 }

// Fields returns the field names referenced by the filter.
func (f Filter) Fields() []string {
	out := make([]string, len(f.conditions))
	for i, c := range f.conditions {
		out[i] = c.field
	}
	return out
}

// FromMap builds a filter from a loosely typed mapping such as a decoded JSON object.
// Accepted shapes per field: a scalar, or {"$eq": scalar}. Keys are processed in
// sorted order so the resulting filter is deterministic.
func FromMap(m map[string]any) (Filter, error) {
	if len(m) == 0 {
		return Filter{}, nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conditions := make([]Condition, 0, len(keys))
	for _, k := range keys {
		if strings.HasPrefix(k, "$") {
			return Filter{}, fmt.Errorf("%w: %q", ErrUnsupportedOperator, k)
		}
		c, err := conditionFromAny(k, m[k])
		if err != nil {
			return Filter{}, err
		}
		conditions = append(conditions, c)
	}
	return New(conditions...)
}

func conditionFromAny(field string, raw any) (Condition, error) {
	if obj, ok := raw.(map[string]any); ok {
		if len(obj) != 1 {
			return Condition{}, fmt.Errorf("field %q: expected exactly one operator", field)
		}
		for op, v := range obj {
			if Op(op) != OpEq {
				return Condition{}, fmt.Errorf("%w: %q on field %q", ErrUnsupportedOperator, op, field)
			}
			val, err := scalar(field, v)
			if err != nil {
				return Condition{}, err
			}
			return NewCondition(field, Op(op), val)
		}
	}
	val, err := scalar(field, raw)
	if err != nil {
		return Condition{}, err
	}
	return NewCondition(field, OpEq, val)
}

func scalar(field string, raw any) (Value, error) {
	switch v := raw.(type) {
	case string:
		return String(v), nil
	case bool:
		return String(strconv.FormatBool(v)), nil
	case int:
		return Number(float64(v)), nil
	case int64:
		return Number(float64(v)), nil
	case float64:
		return Number(v), nil
	default:
		return Value{}, fmt.Errorf("field %q: unsupported value type %T", field, raw)
	}
}

// ParsePairs builds a string equality filter from "field=value" or "field:value" pairs.
func ParsePairs(pairs []string) (Filter, error) {
	conditions := make([]Condition, 0, len(pairs))
	for _, p := range pairs {
		field, value, ok := strings.Cut(p, "=")
		if !ok {
			field, value, ok = strings.Cut(p, ":")
		}
		if !ok {
			return Filter{}, fmt.Errorf("invalid filter %q: expected field=value", p)
		}
		c, err := Eq(strings.TrimSpace(field), strings.TrimSpace(value))
		if err != nil {
			return Filter{}, err
		}
		conditions = append(conditions, c)
	}
	return New(conditions...)
}

// isValidField returns true if s matches [A-Za-z0-9_]+.
func isValidField(s string) bool {
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !isAlpha && !isDigit && r != '_' {
			return false
		}
	}
	return s != ""
}
