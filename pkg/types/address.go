package types

import (
	"fmt"
	"strings"
)

// ShippingAddress is the snapshot stored on clients and orders. Field names
// follow the upstream API so the struct can be forwarded as-is.
type ShippingAddress struct {
	Address1    string  `json:"address1" validate:"required,max=200"`
	Address2    *string `json:"address2,omitempty" validate:"omitempty,max=200"`
	Landmark    *string `json:"landmark,omitempty" validate:"omitempty,max=200"`
	City        string  `json:"city" validate:"required,max=100"`
	State       string  `json:"state,omitempty" validate:"omitempty,max=100"`
	Country     string  `json:"country" validate:"required,max=100"`
	CountryCode string  `json:"countryCode" validate:"required,len=3"`
	PostalCode  string  `json:"postalCode" validate:"required,max=20"`
}

// Normalize trims whitespace and upper-cases the ISO-3166 alpha-3 country code.
func (a ShippingAddress) Normalize() ShippingAddress {
	a.Address1 = strings.TrimSpace(a.Address1)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.Country = strings.TrimSpace(a.Country)
	a.CountryCode = strings.ToUpper(strings.TrimSpace(a.CountryCode))
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Address2 = trimOptional(a.Address2)
	a.Landmark = trimOptional(a.Landmark)
	return a
}

// Validate reports the first missing mandatory field.
func (a ShippingAddress) Validate() error {
	switch {
	case a.Address1 == "":
		return fmt.Errorf("shipping address: missing address1")
	case a.City == "":
		return fmt.Errorf("shipping address: missing city")
	case a.PostalCode == "":
		return fmt.Errorf("shipping address: missing postalCode")
	case len(a.CountryCode) != 3:
		return fmt.Errorf("shipping address: countryCode must be ISO-3166 alpha-3")
	}
	return nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
