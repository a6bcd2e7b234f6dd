package response

import "time"

type BalanceResponse struct {
	Phone          string     `json:"phone"`
	Balance        int64      `json:"balance"`
	LastChargeDate *time.Time `json:"last_charge_date"`
}
