// Package canonical maps extracted raw trip legs into the canonical
// schema and derives each record's deterministic content identity.
package canonical

import "math"

// SanitizeFloat coerces non-finite values to nil. It is the single
// place NaN/Inf handling happens, so the hash input and the persisted
// value always agree.
func SanitizeFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}
