package numbering

import "github.com/jonathanEDR/facturadorfront-sub001/internal/domain/shared"

// CounterConfig is the create-or-update payload for one series counter
type CounterConfig struct {
	SeriesCode    string `json:"serie"`
	InitialNumber int64  `json:"numero_inicial"`
	Active        bool   `json:"activo"`
}

// NewCounterConfig builds a normalized and validated counter configuration
func NewCounterConfig(series string, initialNumber int64, active bool) (CounterConfig, error) {
	cfg := CounterConfig{
		SeriesCode:    NormalizeSeriesCode(series),
		InitialNumber: initialNumber,
		Active:        active,
	}
	if err := cfg.Validate(); err != nil {
		return CounterConfig{}, err
	}
	return cfg, nil
}

// Validate checks the configuration before it is sent to the authority
func (c CounterConfig) Validate() error {
	if err := ValidateSeriesCode(c.SeriesCode); err != nil {
		return err
	}
	if c.InitialNumber < 0 {
		return shared.NewValidationError("Initial number of %s cannot be negative", c.SeriesCode)
	}
	return nil
}

// ValidateBulk validates every configuration of a bulk request and rejects
// empty requests and duplicated series codes.
func ValidateBulk(configs []CounterConfig) error {
	if len(configs) == 0 {
		return shared.NewValidationError("At least one series configuration is required")
	}
	seen := make(map[string]struct{}, len(configs))
	for _, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if _, dup := seen[cfg.SeriesCode]; dup {
			return shared.NewValidationError("Series %s appears more than once", cfg.SeriesCode)
		}
		seen[cfg.SeriesCode] = struct{}{}
	}
	return nil
}

// ValidateResetNumber rejects negative reset targets
func ValidateResetNumber(series string, newNumber int64) error {
	if err := ValidateSeriesCode(series); err != nil {
		return err
	}
	if newNumber < 0 {
		return shared.NewValidationError("Reset number for %s cannot be negative (got %d)", series, newNumber)
	}
	return nil
}
