package data

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

// MmdbReader implements CountryLookup using a MaxMind MMDB file.
// The underlying database can be swapped with Reload while lookups are in flight.
type MmdbReader struct {
	path string

	mu sync.RWMutex
	db *geoip2.Reader
}

// NewMmdbReader opens the MMDB file at the given path and returns a reader.
func NewMmdbReader(path string) (*MmdbReader, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MMDB file: %w", err)
	}
	return &MmdbReader{path: path, db: db}, nil
}

// Path returns the file the reader was opened from.
func (r *MmdbReader) Path() string {
	return r.path
}

// LookupCountry returns the ISO-3166 country code for the given IP address.
func (r *MmdbReader) LookupCountry(ip string) (string, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", ErrInvalidIP
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.db == nil {
		return "", errors.New("MMDB reader is closed")
	}

	record, err := r.db.Country(parsed)
	if err != nil {
		return "", fmt.Errorf("country lookup failed: %w", err)
	}
	if record.Country.IsoCode == "" {
		return "", ErrCountryNotFound
	}
	return record.Country.IsoCode, nil
}

// Reload reopens the MMDB file and replaces the active database.
// On failure the previous database stays in use.
func (r *MmdbReader) Reload() error {
	db, err := geoip2.Open(r.path)
	if err != nil {
		return fmt.Errorf("failed to reopen MMDB file: %w", err)
	}

	r.mu.Lock()
	old := r.db
	r.db = db
	r.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Ready reports an error when no database is loaded.
func (r *MmdbReader) Ready() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.db == nil {
		return errors.New("MMDB not loaded")
	}
	return nil
}

// Close releases the MMDB reader resources.
func (r *MmdbReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}
