package entity

import (
	"time"
)

type ChargeRequestStatus string

const (
	ChargeStatusPending  ChargeRequestStatus = "pending"
	ChargeStatusApproved ChargeRequestStatus = "approved"
	ChargeStatusAll      ChargeRequestStatus = "all"
)

// ChargeRequest asks an admin to add Amount to the user's balance.
// Once Approved is true the row never changes again.
type ChargeRequest struct {
	ID          int64      `db:"id"`
	Phone       string     `db:"phone"`
	Amount      int64      `db:"amount"`
	Approved    bool       `db:"approved"`
	RequestedAt time.Time  `db:"requested_at"`
	ApprovedAt  *time.Time `db:"approved_at"`
}

func (c *ChargeRequest) Status() ChargeRequestStatus {
	if c.Approved {
		return ChargeStatusApproved
	}
	return ChargeStatusPending
}
