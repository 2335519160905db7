package db

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"hr_onboarding_kb", true},
		{"kb:hr_onboarding_kb:idx", true},
		{"with-dash", true},
		{"", false},
		{"has space", false},
		{"semi;colon", false},
	}
	for _, tc := range tests {
		if got := IsValidIdentifier(tc.in); got != tc.want {
			t.Errorf("IsValidIdentifier(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestError_Unwrap(t *testing.T) {
	err := fmt.Errorf("search: %w", &Error{Op: OpSearch, Err: ErrMalformedReply})
	if !errors.Is(err, ErrMalformedReply) {
		t.Error("expected errors.Is to see through db.Error")
	}
	var dbErr *Error
	if !errors.As(err, &dbErr) || dbErr.Op != OpSearch {
		t.Errorf("expected db.Error with op %s, got %v", OpSearch, err)
	}
	if dbErr.Error() != "FT.SEARCH: db: malformed reply" {
		t.Errorf("Error() = %q", dbErr.Error())
	}
}
