package services

// ViewInvalidator receives hints that cached views of the given paths are
// stale. Calls are fire-and-forget: implementations must not block and their
// failures never fail the mutation that triggered them.
type ViewInvalidator interface {
	Invalidate(paths ...string)
}

// NopInvalidator discards all hints.
type NopInvalidator struct{}

func (NopInvalidator) Invalidate(...string) {}
