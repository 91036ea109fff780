package model

import (
	"fmt"
	"math"
)

// NullFloat is a float that may be missing. The zero value is missing.
type NullFloat struct {
	Value float64
	Valid bool
}

// Some returns a present value. NaN and infinities are treated as missing.
func Some(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat{}
	}
	return NullFloat{Value: v, Valid: true}
}

// Missing returns the missing sentinel.
func Missing() NullFloat {
	return NullFloat{}
}

// Render renders the value with the given fmt verb, or "N/A" when missing.
func (n NullFloat) Render(verb string) string {
	if !n.Valid {
		return "N/A"
	}
	return fmt.Sprintf(verb, n.Value)
}

// Ptr returns a pointer to the value, or nil when missing. Used for JSON null.
func (n NullFloat) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}
