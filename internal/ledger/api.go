package ledger

import "encoding/json"

// ApiResponse represents one page of the upstream ownership ledger.
type ApiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Page     int     `json:"page"`
		PageSize int     `json:"pageSize"`
		Total    int     `json:"total"`
		Items    []Event `json:"items"`
	} `json:"data"`
}

// Event is a single ownership transfer reported by the ledger.
type Event struct {
	BottleIndex json.RawMessage `json:"bottleIndex"`
	Account     string          `json:"account" validate:"required,max=128"`
	Type        string          `json:"type" validate:"required,oneof=producer secondary_producer consumer recycler"`
	ObservedAt  string          `json:"observedAt" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}
