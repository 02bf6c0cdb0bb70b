package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// EventType identifies an outbox event kind.
type EventType string

// EventPONewWaiting is enqueued once a claimed PRMS record has been staged
// locally and is awaiting approval. It is the only type consumed here.
const EventPONewWaiting EventType = "PO_NEW_WAITING"

// OutboxEvent is an at-least-once ingestion record.
type OutboxEvent struct {
	ID             int64
	EventType      EventType
	PoNumber       string
	OccurredAt     time.Time
	PayloadJSON    []byte
	DirectAmount   decimal.NullDecimal
	IndirectAmount decimal.NullDecimal
	Attempts       int
	ProcessedAt    *time.Time
}

// NewWaitingPayload is the JSON body of a PO_NEW_WAITING event.
type NewWaitingPayload struct {
	PoNumber       string              `json:"po_number"`
	VendorNumber   string              `json:"vendor_number"`
	BuyerCode      string              `json:"buyer_code,omitempty"`
	HouseCode      string              `json:"house_code,omitempty"`
	LineCount      int                 `json:"line_count"`
	DirectAmount   decimal.NullDecimal `json:"direct_amount"`
	IndirectAmount decimal.NullDecimal `json:"indirect_amount"`
	ClaimedAt      time.Time           `json:"claimed_at"`
}

// ToJSON serializes the payload.
func (p NewWaitingPayload) ToJSON() ([]byte, error) {
	return json.Marshal(p)
}

// NewWaitingEvent builds the outbox event for a freshly staged PO.
func NewWaitingEvent(h POHeader, lineCount int, at time.Time) (OutboxEvent, error) {
	payload, err := NewWaitingPayload{
		PoNumber:       h.PoNumber,
		VendorNumber:   h.VendorNumber,
		BuyerCode:      h.BuyerCode,
		HouseCode:      h.HouseCode,
		LineCount:      lineCount,
		DirectAmount:   h.DirectAmount,
		IndirectAmount: h.IndirectAmount,
		ClaimedAt:      at,
	}.ToJSON()
	if err != nil {
		return OutboxEvent{}, err
	}
	return OutboxEvent{
		EventType:      EventPONewWaiting,
		PoNumber:       h.PoNumber,
		OccurredAt:     at,
		PayloadJSON:    payload,
		DirectAmount:   h.DirectAmount,
		IndirectAmount: h.IndirectAmount,
	}, nil
}
