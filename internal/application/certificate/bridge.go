// Package certificate holds the bridge between the legacy single-certificate
// company configuration and the multi-certificate registry.
package certificate

import (
	"context"
	"sync"
	"time"

	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/certificate"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/shared"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/infrastructure/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrBridgeClosed is returned by calls made after Close
var ErrBridgeClosed = shared.NewDomainError(shared.CodeInvalidState, "Certificate bridge is closed")

// Authority is the remote company and certificate registry
type Authority interface {
	GetCompany(ctx context.Context, companyID string) (certificate.Company, error)
	ListCertificates(ctx context.Context, companyID string) (certificate.Registry, error)
	RegisterCertificate(ctx context.Context, companyID string, req certificate.MigrationRequest) (certificate.Record, error)
	ActivateCertificate(ctx context.Context, companyID, certID, reason string) error
	DeactivateCertificate(ctx context.Context, companyID, certID string) error
	DeleteCertificate(ctx context.Context, companyID, certID string) error
	SetLegacyActive(ctx context.Context, companyID string, active bool) error
}

// Status is the lifecycle state of a bridge
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusReady     Status = "ready"
	StatusMigrating Status = "migrating"
	StatusError     Status = "error"
)

// ConfigChangeFunc receives the legacy-shaped view after a migration or sync
type ConfigChangeFunc func(ctx context.Context, view certificate.LegacyView)

// State is a snapshot of the bridge
type State struct {
	CompanyID string                        `json:"empresa_id"`
	Status    Status                        `json:"status"`
	Presence  certificate.Presence          `json:"presence"`
	Strategy  certificate.MigrationStrategy `json:"strategy"`
	Registry  certificate.Registry          `json:"registry"`
	Legacy    certificate.LegacyConfig      `json:"legacy"`
	Error     string                        `json:"error,omitempty"`
	SyncedAt  time.Time                     `json:"synced_at,omitzero"`
}

// Option configures a Bridge
type Option func(*Bridge)

// WithPreferHybrid keeps both representations side by side when both exist
func WithPreferHybrid(prefer bool) Option {
	return func(b *Bridge) { b.preferHybrid = prefer }
}

// WithAutoMigrate runs the migration as part of Load for legacy-only companies
func WithAutoMigrate(auto bool) Option {
	return func(b *Bridge) { b.autoMigrate = auto }
}

// WithConfigChange registers the callback invoked after migration and sync
func WithConfigChange(fn ConfigChangeFunc) Option {
	return func(b *Bridge) { b.onConfigChange = fn }
}

// WithExpiryWarningDays sets the threshold used by Expiring
func WithExpiryWarningDays(days int) Option {
	return func(b *Bridge) { b.expiryWarningDays = days }
}

// WithLogger sets the bridge logger
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(b *Bridge) { b.now = now }
}

// Bridge reconciles the legacy certificate fields of one company with its
// certificate registry. The registry is authoritative whenever it holds a
// usable record; data only ever flows from legacy into the registry through
// ExecuteMigration, and from the registry back to the legacy shape through
// the LegacyView.
type Bridge struct {
	authority         Authority
	logger            *zap.Logger
	now               func() time.Time
	preferHybrid      bool
	autoMigrate       bool
	expiryWarningDays int
	onConfigChange    ConfigChangeFunc

	mu        sync.Mutex
	companyID string
	company   certificate.Company
	registry  certificate.Registry
	status    Status
	errMsg    string
	syncedAt  time.Time
	loaded    bool
	closed    bool
}

// NewBridge creates an idle bridge
func NewBridge(authority Authority, opts ...Option) *Bridge {
	b := &Bridge{
		authority:         authority,
		logger:            zap.NewNop(),
		now:               time.Now,
		expiryWarningDays: 30,
		status:            StatusIdle,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Load fetches the company identity, its legacy fields and its registry.
// With auto-migration enabled, a legacy-only company is migrated right away.
func (b *Bridge) Load(ctx context.Context, companyID string) error {
	if companyID == "" {
		return shared.NewValidationError("Company id is required")
	}
	if err := b.transition(StatusLoading); err != nil {
		return err
	}

	company, registry, err := b.fetch(ctx, companyID)
	if err != nil {
		b.fail(ctx, "Failed to load certificates", err)
		return err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.companyID = companyID
	b.company = company
	b.registry = registry
	b.loaded = true
	b.status = StatusReady
	b.syncedAt = b.now()
	strategy := b.strategyLocked()
	b.mu.Unlock()

	logger.Enrich(ctx, b.logger).Info("Loaded certificates",
		zap.String("empresa_id", companyID),
		zap.Int("certificados", len(registry.Records)),
		zap.String("strategy", string(strategy)))

	if b.autoMigrate && strategy.RequiresMigration() {
		if _, err := b.ExecuteMigration(ctx); err != nil {
			return err
		}
	}
	return nil
}

// fetch reads company and registry concurrently
func (b *Bridge) fetch(ctx context.Context, companyID string) (certificate.Company, certificate.Registry, error) {
	var (
		company  certificate.Company
		registry certificate.Registry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		company, err = b.authority.GetCompany(gctx, companyID)
		return err
	})
	g.Go(func() error {
		var err error
		registry, err = b.authority.ListCertificates(gctx, companyID)
		return err
	})
	if err := g.Wait(); err != nil {
		return certificate.Company{}, certificate.Registry{}, err
	}
	return company, registry, nil
}

// DetermineMigrationStrategy returns the strategy for the loaded company
func (b *Bridge) DetermineMigrationStrategy() certificate.MigrationStrategy {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.strategyLocked()
}

func (b *Bridge) strategyLocked() certificate.MigrationStrategy {
	return certificate.DetermineMigrationStrategy(b.company.Legacy.HasData(), b.registry.HasAny(), b.preferHybrid)
}

// GetActiveUnifiedCertificate resolves the active certificate over the loaded state
func (b *Bridge) GetActiveUnifiedCertificate() certificate.ActiveCertificate {
	b.mu.Lock()
	defer b.mu.Unlock()
	return certificate.ResolveActive(b.registry, b.company.Legacy, b.now())
}

// Expiring returns usable registry records inside the expiry warning window
func (b *Bridge) Expiring() []certificate.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.registry.Expiring(b.now(), b.expiryWarningDays)
}

// ExecuteMigration copies the legacy certificate into the registry and turns
// the legacy flag off. A record already migrated from the same legacy file is
// reused, so only the legacy deactivation runs again.
func (b *Bridge) ExecuteMigration(ctx context.Context) (certificate.Record, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return certificate.Record{}, ErrBridgeClosed
	}
	if !b.loaded {
		b.mu.Unlock()
		return certificate.Record{}, shared.ErrNotLoaded
	}
	companyID := b.companyID
	company := b.company
	existing, migrated := b.registry.FindMigrated(company.Legacy)
	now := b.now()
	b.status = StatusMigrating
	b.errMsg = ""
	b.mu.Unlock()

	log := logger.Enrich(ctx, b.logger).With(zap.String("empresa_id", companyID))

	record := existing
	if !migrated {
		req, err := certificate.NewMigrationRequest(company, now)
		if err != nil {
			b.fail(ctx, "Legacy certificate cannot be migrated", err)
			return certificate.Record{}, err
		}
		record, err = b.authority.RegisterCertificate(ctx, companyID, req)
		if err != nil {
			b.fail(ctx, "Failed to register migrated certificate", err)
			return certificate.Record{}, err
		}
		log.Info("Registered migrated certificate",
			zap.String("certificado_id", record.ID),
			zap.String("filename", record.Filename))

		// Keep the record locally so a retry after a partial failure reuses it
		b.mu.Lock()
		if !b.closed {
			b.registry.Records = append(b.registry.Records, record)
		}
		b.mu.Unlock()
	} else {
		log.Info("Reusing previously migrated certificate", zap.String("certificado_id", record.ID))
	}

	if company.Legacy.Active {
		if err := b.authority.SetLegacyActive(ctx, companyID, false); err != nil {
			b.fail(ctx, "Failed to deactivate legacy certificate", err)
			return certificate.Record{}, err
		}
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return record, nil
	}
	b.company.Legacy.Active = false
	if b.registry.ActiveID == "" && record.Active {
		b.registry.ActiveID = record.ID
	}
	b.status = StatusReady
	view := b.viewLocked()
	b.mu.Unlock()

	log.Info("Migrated legacy certificate", zap.String("strategy", string(view.Strategy)))
	b.notify(ctx, view)
	return record, nil
}

// ForceSync re-reads the registry and the legacy fields and pushes the
// registry state into the legacy-shaped view.
func (b *Bridge) ForceSync(ctx context.Context) (certificate.LegacyView, error) {
	companyID, err := b.loadedCompany()
	if err != nil {
		return certificate.LegacyView{}, err
	}
	if err := b.transition(StatusLoading); err != nil {
		return certificate.LegacyView{}, err
	}

	company, registry, err := b.fetch(ctx, companyID)
	if err != nil {
		b.fail(ctx, "Failed to sync certificates", err)
		return certificate.LegacyView{}, err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return certificate.LegacyView{}, nil
	}
	b.company = company
	b.registry = registry
	b.status = StatusReady
	b.syncedAt = b.now()
	view := b.viewLocked()
	b.mu.Unlock()

	logger.Enrich(ctx, b.logger).Info("Synchronized certificates",
		zap.String("empresa_id", companyID),
		zap.String("source", string(view.Source)))
	b.notify(ctx, view)
	return view, nil
}

// LegacyView returns the legacy-shaped view of the loaded state
func (b *Bridge) LegacyView() certificate.LegacyView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewLocked()
}

func (b *Bridge) viewLocked() certificate.LegacyView {
	return certificate.BuildLegacyView(b.companyID, b.registry, b.company.Legacy, b.strategyLocked(), b.now())
}

// ActivateCertificate makes certID the active registry certificate
func (b *Bridge) ActivateCertificate(ctx context.Context, certID, reason string) (certificate.Registry, error) {
	return b.mutate(ctx, "activate", certID, func(companyID string) error {
		return b.authority.ActivateCertificate(ctx, companyID, certID, reason)
	})
}

// DeactivateCertificate disables certID
func (b *Bridge) DeactivateCertificate(ctx context.Context, certID string) (certificate.Registry, error) {
	return b.mutate(ctx, "deactivate", certID, func(companyID string) error {
		return b.authority.DeactivateCertificate(ctx, companyID, certID)
	})
}

// DeleteCertificate removes certID from the registry
func (b *Bridge) DeleteCertificate(ctx context.Context, certID string) (certificate.Registry, error) {
	return b.mutate(ctx, "delete", certID, func(companyID string) error {
		return b.authority.DeleteCertificate(ctx, companyID, certID)
	})
}

// mutate runs a registry write and refreshes the registry afterwards
func (b *Bridge) mutate(ctx context.Context, action, certID string, call func(companyID string) error) (certificate.Registry, error) {
	if certID == "" {
		return certificate.Registry{}, shared.NewValidationError("Certificate id is required")
	}
	companyID, err := b.loadedCompany()
	if err != nil {
		return certificate.Registry{}, err
	}
	if err := b.transition(StatusLoading); err != nil {
		return certificate.Registry{}, err
	}

	log := logger.Enrich(ctx, b.logger).With(
		zap.String("empresa_id", companyID),
		zap.String("certificado_id", certID),
		zap.String("action", action))

	if err := call(companyID); err != nil {
		b.fail(ctx, "Certificate update rejected", err)
		return certificate.Registry{}, err
	}
	registry, err := b.authority.ListCertificates(ctx, companyID)
	if err != nil {
		b.fail(ctx, "Failed to refresh certificates", err)
		return certificate.Registry{}, err
	}

	b.mu.Lock()
	if !b.closed {
		b.registry = registry
		b.status = StatusReady
		b.syncedAt = b.now()
	}
	b.mu.Unlock()

	log.Info("Certificate updated")
	return registry, nil
}

// Snapshot returns a copy of the bridge state
func (b *Bridge) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	registry := certificate.Registry{
		Records:  append([]certificate.Record{}, b.registry.Records...),
		ActiveID: b.registry.ActiveID,
	}
	return State{
		CompanyID: b.companyID,
		Status:    b.status,
		Presence:  certificate.DeterminePresence(b.company.Legacy.HasData(), b.registry.HasAny()),
		Strategy:  b.strategyLocked(),
		Registry:  registry,
		Legacy:    b.company.Legacy,
		Error:     b.errMsg,
		SyncedAt:  b.syncedAt,
	}
}

// Close detaches the bridge: in-flight results are discarded and later calls
// fail with ErrBridgeClosed.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

func (b *Bridge) transition(status Status) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBridgeClosed
	}
	b.status = status
	b.errMsg = ""
	return nil
}

func (b *Bridge) loadedCompany() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", ErrBridgeClosed
	}
	if !b.loaded {
		return "", shared.ErrNotLoaded
	}
	return b.companyID, nil
}

// fail records err as the bridge error and moves to the error status
func (b *Bridge) fail(ctx context.Context, msg string, err error) {
	b.mu.Lock()
	if !b.closed {
		b.status = StatusError
		b.errMsg = shared.Message(err)
	}
	companyID := b.companyID
	b.mu.Unlock()
	logger.Enrich(ctx, b.logger).Warn(msg, zap.String("empresa_id", companyID), zap.Error(err))
}

func (b *Bridge) notify(ctx context.Context, view certificate.LegacyView) {
	if b.onConfigChange != nil {
		b.onConfigChange(ctx, view)
	}
}
