package pointer

func FromAny[T any](v T) *T {
	return &v
}

func ToString(p *string) string {
	if p == nil {
		return ""
	}

	return *p
}

func Default[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
