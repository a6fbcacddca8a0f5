package numbering

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/shared"
)

// seriesPattern matches SUNAT series codes: one letter or digit followed by three characters
var seriesPattern = regexp.MustCompile(`^[A-Z0-9]{4}$`)

// SeriesCounter is the counter state of one document series
type SeriesCounter struct {
	SeriesCode     string    `json:"serie"`
	CurrentNumber  int64     `json:"numero_actual"`
	InitialNumber  int64     `json:"numero_inicial"`
	Active         bool      `json:"activo"`
	OwnerCompanyID string    `json:"empresa_id,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitzero"`

	// Version is assigned locally each time the counter is merged into a CounterSet
	Version uint64 `json:"-"`
}

// NormalizeSeriesCode upper-cases and trims a series code
func NormalizeSeriesCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateSeriesCode checks the series code format
func ValidateSeriesCode(code string) error {
	if code == "" {
		return shared.NewValidationError("Series code is required")
	}
	if !seriesPattern.MatchString(code) {
		return shared.NewValidationError("Series code %q must be four letters or digits (e.g. F001)", code)
	}
	return nil
}

// Validate checks the counter invariants
func (c *SeriesCounter) Validate() error {
	if err := ValidateSeriesCode(c.SeriesCode); err != nil {
		return err
	}
	if c.CurrentNumber < 0 {
		return shared.NewValidationError("Current number of %s cannot be negative", c.SeriesCode)
	}
	if c.CurrentNumber < c.InitialNumber {
		return shared.NewValidationError("Current number of %s (%d) is below its initial number (%d)",
			c.SeriesCode, c.CurrentNumber, c.InitialNumber)
	}
	return nil
}

// IsUsable returns true if documents can be numbered in this series
func (c *SeriesCounter) IsUsable() bool {
	return c.Active
}

// Issued returns how many numbers have been allocated since the initial number
func (c *SeriesCounter) Issued() int64 {
	if c.CurrentNumber <= c.InitialNumber {
		return 0
	}
	return c.CurrentNumber - c.InitialNumber
}

// FormatNumber renders a document number in the SUNAT "SERIE-NUMERO" layout
// with the correlative padded to eight digits.
func FormatNumber(series string, number int64) string {
	return fmt.Sprintf("%s-%08d", series, number)
}

// NextNumber is the authority's answer to an allocation request
type NextNumber struct {
	SeriesCode string `json:"serie"`
	Number     int64  `json:"siguiente_numero"`
}

// Formatted returns the allocated number as "SERIE-NUMERO"
func (n NextNumber) Formatted() string {
	return FormatNumber(n.SeriesCode, n.Number)
}
