package entity

import (
	"time"
)

// User is a balance holder identified by a digits-only phone number
type User struct {
	Timestamps
	Phone          string     `db:"phone"`
	Balance        int64      `db:"balance"`
	LastChargeDate *time.Time `db:"last_charge_date"`
}
