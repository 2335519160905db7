package filter

import (
	"errors"
	"strings"
	"testing"
)

func TestEq_Valid(t *testing.T) {
	c, err := Eq("source_file", "organization-coe.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Field() != "source_file" || c.Op() != OpEq {
		t.Errorf("unexpected condition: %+v", c)
	}
	if c.Value().Kind() != KindString || c.Value().Str() != "organization-coe.pdf" {
		t.Errorf("unexpected value: %+v", c.Value())
	}
}

func TestNewCondition_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		field string
		op    Op
		value Value
		want  string
	}{
		{"empty field", "", OpEq, String("x"), "field is required"},
		{"bad field chars", "doc type", OpEq, String("x"), "invalid filter field"},
		{"empty value", "doc_type", OpEq, String(""), "match value is required"},
		{"range operator", "chunk_index", Op("$gt"), Number(3), "unsupported filter operator"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCondition(tt.field, tt.op, tt.value)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want substring %q", err, tt.want)
			}
		})
	}
}

func TestNew_TooManyConditions(t *testing.T) {
	conds := make([]Condition, MaxConditions+1)
	for i := range conds {
		conds[i], _ = Eq("f", "v")
	}
	if _, err := New(conds...); err == nil {
		t.Fatal("expected error for too many conditions")
	}
}

func TestFilter_ZeroValue(t *testing.T) {
	var f Filter
	if !f.IsEmpty() {
		t.Error("zero filter should be empty")
	}
	if len(f.Fields()) != 0 {
		t.Error("zero filter should reference no fields")
	}
}

func TestFromMap_Scalars(t *testing.T) {
	f, err := FromMap(map[string]any{
		"source_file": "organization-coe.pdf",
		"chunk_index": float64(4),
		"active":      true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	conds := f.Conditions()
	if len(conds) != 3 {
		t.Fatalf("expected 3 conditions, got %d", len(conds))
	}
	// sorted by key
	if conds[0].Field() != "active" || conds[1].Field() != "chunk_index" || conds[2].Field() != "source_file" {
		t.Errorf("unexpected order: %v", f.Fields())
	}
	if conds[0].Value().Text() != "true" {
		t.Errorf("bool should be matched as text, got %q", conds[0].Value().Text())
	}
	if conds[1].Value().Kind() != KindNumber || conds[1].Value().Num() != 4 {
		t.Errorf("unexpected numeric value: %+v", conds[1].Value())
	}
}

func TestFromMap_ExplicitEq(t *testing.T) {
	f, err := FromMap(map[string]any{"doc_type": map[string]any{"$eq": "employee_record"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.Conditions()[0].Value().Str(); got != "employee_record" {
		t.Errorf("value = %q", got)
	}
}

func TestFromMap_UnsupportedOperators(t *testing.T) {
	inputs := []map[string]any{
		{"chunk_index": map[string]any{"$gt": float64(2)}},
		{"doc_type": map[string]any{"$in": []any{"policy", "compliance"}}},
		{"role": map[string]any{"$nin": []any{"Intern"}}},
		{"metadata": map[string]any{"$exists": map[string]any{}}},
		{"$and": []any{}},
	}
	for _, in := range inputs {
		_, err := FromMap(in)
		if !errors.Is(err, ErrUnsupportedOperator) {
			t.Errorf("FromMap(%v): expected ErrUnsupportedOperator, got %v", in, err)
		}
	}
}

func TestFromMap_Empty(t *testing.T) {
	f, err := FromMap(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.IsEmpty() {
		t.Error("expected empty filter")
	}
}

func TestFromMap_UnsupportedValueType(t *testing.T) {
	_, err := FromMap(map[string]any{"role": []any{"a"}})
	if err == nil {
		t.Fatal("expected error for list value")
	}
}

func TestParsePairs(t *testing.T) {
	f, err := ParsePairs([]string{"doc_type=employee_record", "role: Software Engineer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conds := f.Conditions()
	if conds[0].Field() != "doc_type" || conds[0].Value().Str() != "employee_record" {
		t.Errorf("unexpected first condition: %+v", conds[0])
	}
	if conds[1].Field() != "role" || conds[1].Value().Str() != "Software Engineer" {
		t.Errorf("unexpected second condition: %+v", conds[1])
	}

	if _, err := ParsePairs([]string{"no-separator"}); err == nil {
		t.Error("expected error for pair without separator")
	}
}

func TestValue_TextNumber(t *testing.T) {
	if got := Number(3).Text(); got != "3" {
		t.Errorf("Number(3).Text() = %q", got)
	}
	if got := Number(0.5).Text(); got != "0.5" {
		t.Errorf("Number(0.5).Text() = %q", got)
	}
}
