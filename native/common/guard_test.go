package common

import (
	"errors"
	"testing"
)

func TestRequireAdmin(t *testing.T) {
	admin := [20]byte{19: 0xAA}
	other := [20]byte{19: 0xBB}

	if err := RequireAdmin(StaticAdmin(admin), admin); err != nil {
		t.Fatalf("expected admin to pass, got %v", err)
	}
	if err := RequireAdmin(StaticAdmin(admin), other); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if err := RequireAdmin(nil, admin); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected nil view to deny, got %v", err)
	}
	var zero [20]byte
	if err := RequireAdmin(StaticAdmin(zero), zero); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected zero admin to deny, got %v", err)
	}
}
