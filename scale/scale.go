// Package scale provides the linear mappings between data values and pixels.
package scale

// Linear maps a domain interval onto a range interval linearly. The range
// may be reversed, as with vertical axes that grow downwards.
type Linear struct {
	D0, D1 float64
	R0, R1 float64
}

// NewLinear creates a linear scale from [d0, d1] to [r0, r1].
func NewLinear(d0, d1, r0, r1 float64) Linear {
	return Linear{D0: d0, D1: d1, R0: r0, R1: r1}
}

// Map converts a domain value to a range value. A degenerate domain maps
// everything to R0.
func (s Linear) Map(v float64) float64 {
	if s.D1 == s.D0 {
		return s.R0
	}

	return s.R0 + (v-s.D0)*(s.R1-s.R0)/(s.D1-s.D0)
}

// Invert converts a range value back to a domain value. A degenerate range
// maps everything to D0.
func (s Linear) Invert(p float64) float64 {
	if s.R1 == s.R0 {
		return s.D0
	}

	return s.D0 + (p-s.R0)*(s.D1-s.D0)/(s.R1-s.R0)
}

// Length converts a length in the domain to a length in the range. The
// result keeps the sign of the range direction.
func (s Linear) Length(d float64) float64 {
	if s.D1 == s.D0 {
		return 0
	}

	return d * (s.R1 - s.R0) / (s.D1 - s.D0)
}
