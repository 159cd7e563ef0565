package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := New(KindAuth, "bad credentials")
	if got := KindOf(err); got != KindAuth {
		t.Errorf("KindOf = %s, want auth", got)
	}

	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Errorf("KindOf(plain) = %s, want unknown", got)
	}
	if got := KindOf(nil); got != KindUnknown {
		t.Errorf("KindOf(nil) = %s, want unknown", got)
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := New(KindNetwork, "connection reset")
	outer := fmt.Errorf("sync a.txt: %w", inner)

	if !Is(outer, KindNetwork) {
		t.Error("kind lost through fmt.Errorf wrapping")
	}

	rewrapped := Wrap(KindStorage, "save state", outer)
	if got := KindOf(rewrapped); got != KindStorage {
		t.Errorf("outermost kind: got %s, want storage", got)
	}
}

func TestWrapNilIsNil(t *testing.T) {
	if err := Wrap(KindStorage, "noop", nil); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindNetwork, true},
		{KindAuth, false},
		{KindProtocol, false},
		{KindFilesystem, false},
		{KindConflict, false},
		{KindNotFound, false},
	}

	for _, tt := range tests {
		err := New(tt.kind, "x")
		if got := Retryable(err); got != tt.want {
			t.Errorf("Retryable(%s) = %v, want %v", tt.kind, got, tt.want)
		}
	}

	if Retryable(errors.New("plain")) {
		t.Error("unclassified errors must not be retryable")
	}
}

func TestErrorString(t *testing.T) {
	err := Wrap(KindFilesystem, "stat a.txt", errors.New("permission denied"))
	want := "filesystem: stat a.txt: permission denied"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}
