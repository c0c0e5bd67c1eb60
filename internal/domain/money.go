package domain

import "fmt"

// Cents is a monetary amount in integer minor units (e.g. euro cents).
// All arithmetic on bid amounts and throne totals happens in minor units so
// repeated additions never accumulate floating-point drift.
type Cents int64

// String renders the amount as a decimal major-unit string, e.g. 1001 -> "10.01".
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
