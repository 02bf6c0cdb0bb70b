package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// POHeader is a PO header as extracted from PRMS and staged locally.
type POHeader struct {
	PoNumber         string
	PoDate           *time.Time
	VendorNumber     string
	VendorName       string
	VendorAddr1      string
	VendorAddr2      string
	VendorAddr3      string
	VendorState      string
	VendorPostalCode string
	BuyerCode        string
	BuyerName        string
	HouseCode        string
	DirectAmount     decimal.NullDecimal
	IndirectAmount   decimal.NullDecimal
	CreatedAt        time.Time
}

// POLine is one PO line as extracted from PRMS.
type POLine struct {
	PoNumber             string
	LineNumber           int
	HouseCode            string
	ItemNumber           string
	ItemDescription      string
	ItemShortDescription string
	QuantityOrdered      decimal.NullDecimal
	OrderUom             string
	UnitCost             decimal.NullDecimal
	ExtendedCost         decimal.NullDecimal
	RequiredDate         *time.Time
	GlAccount            string
}
