// Package geo resolves IP addresses to countries and aggregates batch results.
package geo

import (
	"errors"
	"log/slog"

	"github.com/TomasB/ipcountry/internal/data"
)

// Messages shared by every transport.
const (
	MsgInvalidIP            = "Invalid IP address format"
	MsgCountryNotFound      = "Country not found"
	MsgCountryNotFoundForIP = "Country not found for the provided IP address"
	MsgLookupFailed         = "Lookup failed"
)

// Outcome classifies a single resolution.
type Outcome int

const (
	OutcomeFound Outcome = iota
	OutcomeNotFound
	OutcomeInvalid
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Names resolves ISO country codes to display names.
type Names interface {
	NameOrUnknown(code string) string
}

// Result is the outcome of resolving one IP.
// Country and CountryName are set only when Outcome is OutcomeFound.
type Result struct {
	Outcome     Outcome
	Country     string
	CountryName string
	Err         error
}

// Found reports whether the IP resolved to a country.
func (r Result) Found() bool {
	return r.Outcome == OutcomeFound
}

// Message is the per-item error text used in batch responses.
func (r Result) Message() string {
	switch r.Outcome {
	case OutcomeFound:
		return ""
	case OutcomeNotFound:
		return MsgCountryNotFound
	case OutcomeInvalid:
		return MsgInvalidIP
	default:
		return MsgLookupFailed
	}
}

// Service combines the geo dataset and the country name table.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	lookup data.CountryLookup
	names  Names
}

// NewService creates a Service.
func NewService(lookup data.CountryLookup, names Names) *Service {
	return &Service{lookup: lookup, names: names}
}

// Resolve looks up the country of ip.
func (s *Service) Resolve(ip string) Result {
	country, err := s.lookup.LookupCountry(ip)
	switch {
	case err == nil:
		return Result{
			Outcome:     OutcomeFound,
			Country:     country,
			CountryName: s.names.NameOrUnknown(country),
		}
	case errors.Is(err, data.ErrInvalidIP):
		return Result{Outcome: OutcomeInvalid, Err: err}
	case errors.Is(err, data.ErrCountryNotFound):
		return Result{Outcome: OutcomeNotFound, Err: err}
	default:
		slog.Error("country lookup failed", "ip", ip, "error", err)
		return Result{Outcome: OutcomeFailed, Err: err}
	}
}
