package pricing

// Stepper bounds a quantity selector to [Min, Max].
type Stepper struct {
	Min int
	Max Availability
}

// NewStepper returns a stepper starting at one unit.
func NewStepper(limit Availability) Stepper {
	return Stepper{Min: 1, Max: limit}
}

// Clamp pulls n into the stepper's range. With nothing left it returns 0.
func (s Stepper) Clamp(n int) int {
	if limit, finite := s.Max.Units(); finite && limit < s.Min {
		return limit
	}
	if n < s.Min {
		n = s.Min
	}
	if limit, finite := s.Max.Units(); finite && n > limit {
		n = limit
	}
	return n
}

// Increment returns n+1 clamped to the range.
func (s Stepper) Increment(n int) int {
	return s.Clamp(n + 1)
}

// Decrement returns n-1 clamped to the range.
func (s Stepper) Decrement(n int) int {
	return s.Clamp(n - 1)
}

// CanIncrement reports whether the + control is enabled at n.
func (s Stepper) CanIncrement(n int) bool {
	limit, finite := s.Max.Units()
	return !finite || n < limit
}

// CanDecrement reports whether the - control is enabled at n.
func (s Stepper) CanDecrement(n int) bool {
	return n > s.Min
}
