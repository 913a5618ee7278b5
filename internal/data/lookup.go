package data

import "errors"

var (
	// ErrInvalidIP is returned when the input cannot be parsed as an IPv4 or IPv6 literal.
	ErrInvalidIP = errors.New("invalid IP address format")
	// ErrCountryNotFound is returned when the dataset has no country for a valid IP.
	ErrCountryNotFound = errors.New("country not found")
)

// CountryLookup defines the interface for IP-to-country lookups.
type CountryLookup interface {
	// LookupCountry returns the ISO-3166 country code for the given IP address.
	// It returns ErrInvalidIP for malformed input and ErrCountryNotFound when
	// the dataset holds no country for the address.
	LookupCountry(ip string) (string, error)

	// Close releases any resources held by the lookup implementation.
	Close() error
}
