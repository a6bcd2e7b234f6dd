package request

import (
	"bytes"
	"encoding/json"
)

type CreateChargeRequest struct {
	Phone  string `json:"phone" validate:"required,phone"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
}

type ApproveChargeRequest struct {
	ID RawID `json:"id"`
}

// RawID keeps the id exactly as sent so that both 12 and "12" are accepted
// and anything else is rejected later as an invalid id.
type RawID string

func (r *RawID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RawID(s)
		return nil
	}

	*r = RawID(data)
	return nil
}
