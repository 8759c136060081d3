package models

import "time"

// AddressType distinguishes the address documents held by the legacy system.
type AddressType string

const (
	AddressTypeCompany AddressType = "COMPANY_ADDRESS"
	AddressTypeBilling AddressType = "BILLING_ADDRESS"
)

// LegacyRecord is a raw company payload as ingested from the legacy system.
// Data is a JSON object keyed by the legacy field names.
type LegacyRecord struct {
	Code      string
	Data      []byte
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// LegacyAddress is a raw address document for one organisation and address type.
type LegacyAddress struct {
	Code string
	Type AddressType
	Data []byte
}
