package authority

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/numbering"
)

const numberingPrefix = "/numeracion/"

type bulkConfigureBody struct {
	Configurations []numbering.CounterConfig `json:"configuraciones"`
}

type resetBody struct {
	NewNumber int64 `json:"nuevo_numero"`
}

type setActiveBody struct {
	Active bool `json:"activo"`
}

func seriesPath(format, series string) string {
	return numberingPrefix + format + "/" + url.PathEscape(series)
}

// ListSeries returns the series codes known to the authority
func (c *Client) ListSeries(ctx context.Context) ([]string, error) {
	var series []string
	err := c.do(ctx, request{
		op:     "list_series",
		method: http.MethodGet,
		path:   numberingPrefix + "series",
		cached: true,
	}, &series)
	if err != nil {
		return nil, err
	}
	return series, nil
}

// ListCounters returns every counter of the caller's company
func (c *Client) ListCounters(ctx context.Context) ([]numbering.SeriesCounter, error) {
	var counters []numbering.SeriesCounter
	err := c.do(ctx, request{
		op:     "list_counters",
		method: http.MethodGet,
		path:   numberingPrefix + "contadores",
		cached: true,
	}, &counters)
	if err != nil {
		return nil, err
	}
	return counters, nil
}

// Configure creates or updates one counter
func (c *Client) Configure(ctx context.Context, cfg numbering.CounterConfig) (numbering.SeriesCounter, error) {
	var counter numbering.SeriesCounter
	err := c.do(ctx, request{
		op:          "configure",
		method:      http.MethodPost,
		path:        numberingPrefix + "configurar",
		body:        cfg,
		invalidates: []string{numberingPrefix},
	}, &counter)
	return counter, err
}

// ConfigureBulk creates or updates several counters in one round trip
func (c *Client) ConfigureBulk(ctx context.Context, configs []numbering.CounterConfig) ([]numbering.SeriesCounter, error) {
	var counters []numbering.SeriesCounter
	err := c.do(ctx, request{
		op:          "configure_bulk",
		method:      http.MethodPost,
		path:        numberingPrefix + "configurar-masiva",
		body:        bulkConfigureBody{Configurations: configs},
		invalidates: []string{numberingPrefix},
	}, &counters)
	if err != nil {
		return nil, err
	}
	return counters, nil
}

// NextNumber asks the authority for the next number of a series. The answer
// is never cached.
func (c *Client) NextNumber(ctx context.Context, series string) (numbering.NextNumber, error) {
	var next numbering.NextNumber
	err := c.do(ctx, request{
		op:          "next_number",
		method:      http.MethodGet,
		path:        seriesPath("siguiente", series),
		invalidates: []string{numberingPrefix + "contadores"},
	}, &next)
	return next, err
}

// Reset moves the counter of a series to newNumber
func (c *Client) Reset(ctx context.Context, series string, newNumber int64) (numbering.SeriesCounter, error) {
	var counter numbering.SeriesCounter
	err := c.do(ctx, request{
		op:          "reset",
		method:      http.MethodPost,
		path:        seriesPath("resetear", series),
		body:        resetBody{NewNumber: newNumber},
		invalidates: []string{numberingPrefix},
	}, &counter)
	return counter, err
}

// SetActive enables or disables a series
func (c *Client) SetActive(ctx context.Context, series string, active bool) (numbering.SeriesCounter, error) {
	var counter numbering.SeriesCounter
	err := c.do(ctx, request{
		op:          "set_active",
		method:      http.MethodPatch,
		path:        numberingPrefix + "contador/" + url.PathEscape(series) + "/estado",
		body:        setActiveBody{Active: active},
		invalidates: []string{numberingPrefix},
	}, &counter)
	return counter, err
}
