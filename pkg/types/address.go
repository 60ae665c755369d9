package types

import "strings"

// Address is the delivery address snapshot copied onto an order at booking
// time. It is stored as jsonb so later edits to the customer's address book
// never change a placed order.
type Address struct {
	Line1      string  `json:"line1" validate:"required"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city" validate:"required"`
	PostalCode string  `json:"postal_code" validate:"required"`
	Country    string  `json:"country"`
}

// Normalize trims whitespace and applies the default country.
func (a Address) Normalize() Address {
	out := a
	out.Line1 = strings.TrimSpace(a.Line1)
	out.City = strings.TrimSpace(a.City)
	out.PostalCode = strings.TrimSpace(a.PostalCode)
	out.Country = strings.TrimSpace(a.Country)
	if out.Country == "" {
		out.Country = "GB"
	}
	if a.Line2 != nil {
		line2 := strings.TrimSpace(*a.Line2)
		if line2 == "" {
			out.Line2 = nil
		} else {
			out.Line2 = &line2
		}
	}
	return out
}
