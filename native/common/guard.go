package common

import "errors"

var ErrNotAdmin = errors.New("caller is not the administrator")

// AdminView reports whether an identity holds the administrator capability.
type AdminView interface {
	IsAdmin(addr [20]byte) bool
}

// StaticAdmin grants the capability to a single fixed identity.
type StaticAdmin [20]byte

// IsAdmin implements AdminView. The zero identity never qualifies.
func (a StaticAdmin) IsAdmin(addr [20]byte) bool {
	var zero [20]byte
	return [20]byte(a) != zero && [20]byte(a) == addr
}

// RequireAdmin fails unless the caller holds the administrator capability. A
// nil view denies everyone.
func RequireAdmin(v AdminView, caller [20]byte) error {
	if v == nil || !v.IsAdmin(caller) {
		return ErrNotAdmin
	}
	return nil
}
