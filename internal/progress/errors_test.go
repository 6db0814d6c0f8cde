package progress_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/kidventure/kidventure/internal/progress"
)

func TestErrors_MatchKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"not found", &progress.NotFoundError{StudentID: "s1"}, progress.ErrNotFound},
		{"locked", &progress.LockedUnitError{UnitID: "u2", Prerequisite: "u1"}, progress.ErrLockedUnit},
		{"invalid", progress.InvalidArgument("points", "must not be negative"), progress.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("handler: %w", tt.err)
			if !errors.Is(wrapped, tt.kind) {
				t.Errorf("errors.Is(%v, %v) = false", wrapped, tt.kind)
			}
			for _, other := range []error{progress.ErrNotFound, progress.ErrLockedUnit, progress.ErrInvalidArgument} {
				if other != tt.kind && errors.Is(wrapped, other) {
					t.Errorf("errors.Is(%v, %v) = true, want false", wrapped, other)
				}
			}
		})
	}
}

func TestErrors_As(t *testing.T) {
	err := fmt.Errorf("complete: %w", &progress.LockedUnitError{UnitID: "u3", Prerequisite: "u2"})

	var locked *progress.LockedUnitError
	if !errors.As(err, &locked) {
		t.Fatal("errors.As(LockedUnitError) = false")
	}
	if locked.Prerequisite != "u2" {
		t.Errorf("Prerequisite = %q, want u2", locked.Prerequisite)
	}
	if got := locked.Error(); got != `unit "u3": unit is locked until "u2" is complete` {
		t.Errorf("Error() = %q", got)
	}
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"  amina ", "amina", false},
		{"José", "José", false},
		{"", "", true},
		{"   ", "", true},
		{"a.b", "", true},
		{"a/b", "", true},
	}

	for _, tt := range tests {
		got, err := progress.NormalizeID("studentId", tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			if !errors.Is(err, progress.ErrInvalidArgument) {
				t.Errorf("NormalizeID(%q) error = %v, want ErrInvalidArgument", tt.in, err)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
