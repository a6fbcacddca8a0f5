package dto

import "github.com/jonathanEDR/facturadorfront-sub001/internal/domain/numbering"

// ConfigureSeriesRequest creates or updates one series counter
type ConfigureSeriesRequest struct {
	Serie         string `json:"serie" binding:"required,serie"`
	NumeroInicial *int64 `json:"numero_inicial" binding:"required,gte=0"`
	Activo        *bool  `json:"activo"`
}

// ToDomain converts the request; counters are active unless told otherwise
func (r ConfigureSeriesRequest) ToDomain() numbering.CounterConfig {
	active := true
	if r.Activo != nil {
		active = *r.Activo
	}
	return numbering.CounterConfig{
		SeriesCode:    numbering.NormalizeSeriesCode(r.Serie),
		InitialNumber: *r.NumeroInicial,
		Active:        active,
	}
}

// ConfigureBulkRequest configures several series in one call
type ConfigureBulkRequest struct {
	Configuraciones []ConfigureSeriesRequest `json:"configuraciones" binding:"required,min=1,max=50,dive"`
}

// ToDomain converts every entry
func (r ConfigureBulkRequest) ToDomain() []numbering.CounterConfig {
	out := make([]numbering.CounterConfig, len(r.Configuraciones))
	for i, c := range r.Configuraciones {
		out[i] = c.ToDomain()
	}
	return out
}

// ResetSeriesRequest moves a counter to a new number
type ResetSeriesRequest struct {
	NuevoNumero *int64 `json:"nuevo_numero" binding:"required"`
}

// SetSeriesStateRequest enables or disables a series
type SetSeriesStateRequest struct {
	Activo *bool `json:"activo" binding:"required"`
}

// NextNumberResponse is the advisory next number of a series
type NextNumberResponse struct {
	Serie           string `json:"serie"`
	SiguienteNumero int64  `json:"siguiente_numero"`
	Formateado      string `json:"formateado"`
}

// NewNextNumberResponse converts the authority answer
func NewNextNumberResponse(n numbering.NextNumber) NextNumberResponse {
	return NextNumberResponse{
		Serie:           n.SeriesCode,
		SiguienteNumero: n.Number,
		Formateado:      n.Formatted(),
	}
}
