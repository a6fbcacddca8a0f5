// Package numbering holds the registry client that keeps the local view of
// document series counters in step with the counter authority.
package numbering

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/numbering"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/shared"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/infrastructure/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrRegistryClosed is returned by calls made after Close
var ErrRegistryClosed = shared.NewDomainError(shared.CodeInvalidState, "Numbering registry is closed")

// Authority is the remote counter authority
type Authority interface {
	ListSeries(ctx context.Context) ([]string, error)
	ListCounters(ctx context.Context) ([]numbering.SeriesCounter, error)
	Configure(ctx context.Context, cfg numbering.CounterConfig) (numbering.SeriesCounter, error)
	ConfigureBulk(ctx context.Context, configs []numbering.CounterConfig) ([]numbering.SeriesCounter, error)
	NextNumber(ctx context.Context, series string) (numbering.NextNumber, error)
	Reset(ctx context.Context, series string, newNumber int64) (numbering.SeriesCounter, error)
	SetActive(ctx context.Context, series string, active bool) (numbering.SeriesCounter, error)
}

// State is a snapshot of the registry
type State struct {
	Series   []string                  `json:"series"`
	Counters []numbering.SeriesCounter `json:"contadores"`
	Loading  bool                      `json:"loading"`
	Error    string                    `json:"error,omitempty"`
	Version  uint64                    `json:"version"`
}

// Registry caches the series and counters of one company session.
//
// Every operation records its failure as the registry error instead of
// retrying. Mutations merge their result into the cached counters unless a
// newer write for the same series was merged first. After Close, results are
// still returned to callers but never change the registry.
type Registry struct {
	authority Authority
	logger    *zap.Logger

	mu       sync.Mutex
	series   []string
	counters *numbering.CounterSet
	inflight int
	errMsg   string
	closed   bool

	next singleflight.Group
}

// NewRegistry creates a registry backed by authority
func NewRegistry(authority Authority, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		authority: authority,
		logger:    logger,
		series:    []string{},
		counters:  numbering.NewCounterSet(),
	}
}

// begin marks a call in flight, clears the previous error and hands out the
// ticket ordering the call's write.
func (r *Registry) begin() (numbering.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, ErrRegistryClosed
	}
	r.inflight++
	r.errMsg = ""
	return r.counters.Issue(), nil
}

// end completes a call; apply runs under the lock unless the registry is closed
func (r *Registry) end(err error, apply func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inflight--
	if r.closed {
		return
	}
	if err != nil {
		r.errMsg = shared.Message(err)
		return
	}
	if apply != nil {
		apply()
	}
}

// reject records a local failure without touching the network
func (r *Registry) reject(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return err
	}
	r.errMsg = shared.Message(err)
	return err
}

func (r *Registry) merge(ctx context.Context, counter numbering.SeriesCounter, ticket numbering.Ticket) {
	if !r.counters.Merge(counter, ticket) {
		logger.Enrich(ctx, r.logger).Warn("Dropped stale counter response",
			zap.String("serie", counter.SeriesCode),
			zap.Uint64("ticket", uint64(ticket)))
	}
}

// checkCounter rejects an authority answer that breaks the counter invariants
func checkCounter(counter numbering.SeriesCounter) error {
	counter.SeriesCode = numbering.NormalizeSeriesCode(counter.SeriesCode)
	if err := counter.Validate(); err != nil {
		return shared.NewDomainError(shared.CodeTransport,
			fmt.Sprintf("Invalid counter from the invoicing service: %s", shared.Message(err)))
	}
	return nil
}

// checked turns a successful single-counter answer into an error when the
// counter is invalid, so it is never merged
func checked(counter numbering.SeriesCounter, err error) error {
	if err != nil {
		return err
	}
	return checkCounter(counter)
}

// valid drops the counters of a list answer that break the counter invariants
func (r *Registry) valid(ctx context.Context, counters []numbering.SeriesCounter) []numbering.SeriesCounter {
	out := make([]numbering.SeriesCounter, 0, len(counters))
	for _, c := range counters {
		if err := checkCounter(c); err != nil {
			logger.Enrich(ctx, r.logger).Warn("Dropped invalid counter",
				zap.String("serie", c.SeriesCode),
				zap.Int64("numero_actual", c.CurrentNumber),
				zap.Int64("numero_inicial", c.InitialNumber))
			continue
		}
		out = append(out, c)
	}
	return out
}

// ListSeries returns the series known to the authority. It fails open: on
// error the result is empty and the failure is recorded as the registry error.
func (r *Registry) ListSeries(ctx context.Context) []string {
	if _, err := r.begin(); err != nil {
		return []string{}
	}
	series, err := r.authority.ListSeries(ctx)
	if series == nil {
		series = []string{}
	}
	r.end(err, func() {
		r.series = append([]string(nil), series...)
	})
	if err != nil {
		logger.Enrich(ctx, r.logger).Warn("Failed to list series", zap.Error(err))
		return []string{}
	}
	return series
}

// ListCounters fetches every counter and replaces the cached set
func (r *Registry) ListCounters(ctx context.Context) ([]numbering.SeriesCounter, error) {
	ticket, err := r.begin()
	if err != nil {
		return nil, err
	}
	counters, err := r.authority.ListCounters(ctx)
	counters = r.valid(ctx, counters)
	r.end(err, func() {
		r.counters.Replace(counters, ticket)
	})
	if err != nil {
		logger.Enrich(ctx, r.logger).Warn("Failed to list counters", zap.Error(err))
		return nil, err
	}
	return counters, nil
}

// Configure creates or updates the counter of a series. On failure the
// cached counters are left untouched.
func (r *Registry) Configure(ctx context.Context, series string, initialNumber int64, active bool) (numbering.SeriesCounter, error) {
	cfg, err := numbering.NewCounterConfig(series, initialNumber, active)
	if err != nil {
		return numbering.SeriesCounter{}, r.reject(err)
	}
	ticket, err := r.begin()
	if err != nil {
		return numbering.SeriesCounter{}, err
	}
	counter, err := r.authority.Configure(ctx, cfg)
	err = checked(counter, err)
	r.end(err, func() {
		r.merge(ctx, counter, ticket)
	})
	log := logger.Enrich(ctx, r.logger)
	if err != nil {
		log.Warn("Failed to configure series", zap.String("serie", cfg.SeriesCode), zap.Error(err))
		return numbering.SeriesCounter{}, err
	}
	log.Info("Configured series",
		zap.String("serie", counter.SeriesCode),
		zap.Int64("numero_inicial", counter.InitialNumber),
		zap.Bool("activo", counter.Active))
	return counter, nil
}

// ConfigureBulk configures several series in one round trip
func (r *Registry) ConfigureBulk(ctx context.Context, configs []numbering.CounterConfig) ([]numbering.SeriesCounter, error) {
	normalized := make([]numbering.CounterConfig, len(configs))
	for i, cfg := range configs {
		cfg.SeriesCode = numbering.NormalizeSeriesCode(cfg.SeriesCode)
		normalized[i] = cfg
	}
	if err := numbering.ValidateBulk(normalized); err != nil {
		return nil, r.reject(err)
	}
	ticket, err := r.begin()
	if err != nil {
		return nil, err
	}
	counters, err := r.authority.ConfigureBulk(ctx, normalized)
	counters = r.valid(ctx, counters)
	r.end(err, func() {
		for _, c := range counters {
			r.merge(ctx, c, ticket)
		}
	})
	if err != nil {
		logger.Enrich(ctx, r.logger).Warn("Failed to configure series in bulk",
			zap.Int("count", len(normalized)), zap.Error(err))
		return nil, err
	}
	logger.Enrich(ctx, r.logger).Info("Configured series in bulk", zap.Int("count", len(counters)))
	return counters, nil
}

// NextNumber asks the authority for the next number of a series. The answer
// is advisory and never changes the cached counter. Concurrent calls for the
// same series share one authority request, which a cancelled caller does not
// abort for the others.
func (r *Registry) NextNumber(ctx context.Context, series string) (numbering.NextNumber, error) {
	code := numbering.NormalizeSeriesCode(series)
	if err := numbering.ValidateSeriesCode(code); err != nil {
		return numbering.NextNumber{}, r.reject(err)
	}
	if _, err := r.begin(); err != nil {
		return numbering.NextNumber{}, err
	}
	// The shared request outlives any one caller; each caller still stops
	// waiting when its own context ends.
	call := r.next.DoChan(code, func() (any, error) {
		return r.authority.NextNumber(context.WithoutCancel(ctx), code)
	})
	var res singleflight.Result
	select {
	case res = <-call:
	case <-ctx.Done():
		res.Err = ctx.Err()
	}
	v, err, dup := res.Val, res.Err, res.Shared
	r.end(err, nil)
	if err != nil {
		logger.Enrich(ctx, r.logger).Warn("Failed to get next number", zap.String("serie", code), zap.Error(err))
		return numbering.NextNumber{}, err
	}
	if dup {
		logger.Enrich(ctx, r.logger).Debug("Shared in-flight next number request", zap.String("serie", code))
	}
	return v.(numbering.NextNumber), nil
}

// Reset moves the counter of a series to newNumber. Negative numbers are
// rejected locally.
func (r *Registry) Reset(ctx context.Context, series string, newNumber int64) (numbering.SeriesCounter, error) {
	code := numbering.NormalizeSeriesCode(series)
	if err := numbering.ValidateResetNumber(code, newNumber); err != nil {
		return numbering.SeriesCounter{}, r.reject(err)
	}
	ticket, err := r.begin()
	if err != nil {
		return numbering.SeriesCounter{}, err
	}
	counter, err := r.authority.Reset(ctx, code, newNumber)
	err = checked(counter, err)
	r.end(err, func() {
		r.merge(ctx, counter, ticket)
	})
	log := logger.Enrich(ctx, r.logger)
	if err != nil {
		log.Warn("Failed to reset series", zap.String("serie", code), zap.Error(err))
		return numbering.SeriesCounter{}, err
	}
	log.Info("Reset series", zap.String("serie", code), zap.Int64("nuevo_numero", newNumber))
	return counter, nil
}

// SetActive enables or disables a series
func (r *Registry) SetActive(ctx context.Context, series string, active bool) (numbering.SeriesCounter, error) {
	code := numbering.NormalizeSeriesCode(series)
	if err := numbering.ValidateSeriesCode(code); err != nil {
		return numbering.SeriesCounter{}, r.reject(err)
	}
	ticket, err := r.begin()
	if err != nil {
		return numbering.SeriesCounter{}, err
	}
	counter, err := r.authority.SetActive(ctx, code, active)
	err = checked(counter, err)
	r.end(err, func() {
		r.merge(ctx, counter, ticket)
	})
	if err != nil {
		logger.Enrich(ctx, r.logger).Warn("Failed to change series state", zap.String("serie", code), zap.Error(err))
		return numbering.SeriesCounter{}, err
	}
	return counter, nil
}

// Counter returns the cached counter of a series
func (r *Registry) Counter(series string) (numbering.SeriesCounter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters.Get(series)
}

// Snapshot returns a copy of the registry state
func (r *Registry) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State{
		Series:   append([]string{}, r.series...),
		Counters: r.counters.List(),
		Loading:  r.inflight > 0,
		Error:    r.errMsg,
		Version:  r.counters.Version(),
	}
}

// ClearError forgets the recorded error
func (r *Registry) ClearError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errMsg = ""
}

// Close detaches the registry: in-flight results are discarded and later
// calls fail with ErrRegistryClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}
