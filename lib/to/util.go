package to

func Ptr[T any](v T) *T {
	return &v
}

// Empty returns the zero value of the type if the pointer is nil, otherwise it returns the value pointed to by the pointer.
func Empty[T any](ptr *T) T {
	if ptr == nil {
		var zero T
		return zero
	}
	return *ptr
}

func NilString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
