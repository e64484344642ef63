package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestGetKindUnwraps(t *testing.T) {
	inner := ServiceAuth("rejected", errors.New("401"))
	wrapped := fmt.Errorf("stage failed: %w", inner)

	if GetKind(wrapped) != KindServiceAuth {
		t.Errorf("kind = %v, want service auth", GetKind(wrapped))
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Error("plain error did not map to unknown")
	}
}

func TestIsFatalServiceErr(t *testing.T) {
	cases := []struct {
		err   error
		fatal bool
	}{
		{ServiceAuth("auth", nil), true},
		{ServiceQuota("quota", nil), true},
		{ServiceCall("call", nil), false},
		{Timeout("slow", nil), false},
		{NotFound("missing"), false},
		{errors.New("plain"), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := IsFatalServiceErr(tc.err); got != tc.fatal {
			t.Errorf("IsFatalServiceErr(%v) = %v, want %v", tc.err, got, tc.fatal)
		}
	}
}

func TestWithOp(t *testing.T) {
	err := Validation("bad input").WithOp("observe")
	if err.Op != "observe" {
		t.Errorf("op = %q", err.Op)
	}
	if !Is(err, KindValidation) {
		t.Errorf("kind = %v, want validation", GetKind(err))
	}
}
