package utils

// Value dereferences v, returning the zero value when v is nil. Used for
// optional response fields like the purchase-status reason.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
