package values

// Coalesce returns the first non-zero value in a, if any; otherwise it returns
// the zero value of T.
func Coalesce[T comparable](a ...T) T {
	var zero T
	for _, v := range a {
		if v != zero {
			return v
		}
	}
	return zero
}

// MaybeSet is shorthand for:
//
//	v = Coalesce(v, a)
func MaybeSet[T comparable](v *T, a T) {
	*v = Coalesce(*v, a)
}

// MapFunc returns a new slice holding f applied to each element of s.
// A nil s is preserved.
func MapFunc[F, T any](s []F, f func(F) T) []T {
	if s == nil {
		return nil
	}
	tt := make([]T, len(s))
	for i, v := range s {
		tt[i] = f(v)
	}
	return tt
}
