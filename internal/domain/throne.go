package domain

import "time"

// Throne is the singleton record identifying the current leading bidder.
// Amount always equals the holder's TotalInvested as of coronation. The record
// is replaced wholesale on every coronation, never partially updated.
type Throne struct {
	HolderID   string    `json:"holder_id"`
	HolderName string    `json:"holder_name"`
	Amount     Cents     `json:"amount"`
	CrownedAt  time.Time `json:"crowned_at"`
	PaymentRef string    `json:"payment_ref"`
}

// Vacant reports whether the throne has never been claimed. Settlement treats
// a vacant throne as a holder with amount zero.
func (t Throne) Vacant() bool {
	return t.HolderID == ""
}
