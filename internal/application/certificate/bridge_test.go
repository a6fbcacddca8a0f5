package certificate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/certificate"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// MockAuthority is a mock implementation of Authority
type MockAuthority struct {
	mock.Mock
}

func (m *MockAuthority) GetCompany(ctx context.Context, companyID string) (certificate.Company, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).(certificate.Company), args.Error(1)
}

func (m *MockAuthority) ListCertificates(ctx context.Context, companyID string) (certificate.Registry, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).(certificate.Registry), args.Error(1)
}

func (m *MockAuthority) RegisterCertificate(ctx context.Context, companyID string, req certificate.MigrationRequest) (certificate.Record, error) {
	args := m.Called(ctx, companyID, req)
	return args.Get(0).(certificate.Record), args.Error(1)
}

func (m *MockAuthority) ActivateCertificate(ctx context.Context, companyID, certID, reason string) error {
	return m.Called(ctx, companyID, certID, reason).Error(0)
}

func (m *MockAuthority) DeactivateCertificate(ctx context.Context, companyID, certID string) error {
	return m.Called(ctx, companyID, certID).Error(0)
}

func (m *MockAuthority) DeleteCertificate(ctx context.Context, companyID, certID string) error {
	return m.Called(ctx, companyID, certID).Error(0)
}

func (m *MockAuthority) SetLegacyActive(ctx context.Context, companyID string, active bool) error {
	return m.Called(ctx, companyID, active).Error(0)
}

func legacyCompany() certificate.Company {
	return certificate.Company{
		ID:        "emp-1",
		RUC:       "20123456789",
		LegalName: "Comercial Andina S.A.C.",
		Legacy: certificate.LegacyConfig{
			Path:     "/storage/certificados/20123456789.pfx",
			Password: "clave-secreta",
			Active:   true,
		},
	}
}

func registryRecord(id string) certificate.Record {
	return certificate.Record{
		ID:        id,
		Filename:  id + ".pfx",
		ValidFrom: now.AddDate(0, -1, 0),
		ValidTo:   now.AddDate(1, 0, 0),
		Active:    true,
	}
}

func newTestBridge(opts ...Option) (*Bridge, *MockAuthority) {
	m := new(MockAuthority)
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	return NewBridge(m, opts...), m
}

func TestBridge_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("loads company and registry", func(t *testing.T) {
		b, m := newTestBridge()
		m.On("GetCompany", mock.Anything, "emp-1").Return(legacyCompany(), nil)
		m.On("ListCertificates", mock.Anything, "emp-1").Return(certificate.Registry{}, nil)

		require.NoError(t, b.Load(ctx, "emp-1"))

		state := b.Snapshot()
		assert.Equal(t, StatusReady, state.Status)
		assert.Equal(t, certificate.PresenceLegacyOnly, state.Presence)
		assert.Equal(t, certificate.StrategyMigrateLegacy, state.Strategy)
		assert.Equal(t, now, state.SyncedAt)
		m.AssertNotCalled(t, "RegisterCertificate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failure moves to error status", func(t *testing.T) {
		b, m := newTestBridge()
		m.On("GetCompany", mock.Anything, "emp-1").Return(certificate.Company{}, shared.NewRemoteError(404, "Empresa no encontrada"))
		m.On("ListCertificates", mock.Anything, "emp-1").Return(certificate.Registry{}, nil).Maybe()

		err := b.Load(ctx, "emp-1")
		require.ErrorIs(t, err, shared.ErrRemoteRejected)

		state := b.Snapshot()
		assert.Equal(t, StatusError, state.Status)
		assert.Equal(t, "Empresa no encontrada", state.Error)
	})

	t.Run("requires a company id", func(t *testing.T) {
		b, _ := newTestBridge()
		assert.ErrorIs(t, b.Load(ctx, ""), shared.ErrValidation)
		assert.Equal(t, StatusIdle, b.Snapshot().Status)
	})

	t.Run("auto migrates a legacy-only company", func(t *testing.T) {
		b, m := newTestBridge(WithAutoMigrate(true))
		m.On("GetCompany", mock.Anything, "emp-1").Return(legacyCompany(), nil)
		m.On("ListCertificates", mock.Anything, "emp-1").Return(certificate.Registry{}, nil)
		m.On("RegisterCertificate", mock.Anything, "emp-1", mock.Anything).Return(registryRecord("m1"), nil)
		m.On("SetLegacyActive", mock.Anything, "emp-1", false).Return(nil)

		require.NoError(t, b.Load(ctx, "emp-1"))
		m.AssertNumberOfCalls(t, "RegisterCertificate", 1)
		assert.Equal(t, certificate.StrategyPreferNewSystem, b.DetermineMigrationStrategy())
	})
}

func TestBridge_DetermineMigrationStrategy(t *testing.T) {
	ctx := context.Background()
	both := certificate.Registry{Records: []certificate.Record{registryRecord("c1")}, ActiveID: "c1"}

	t.Run("registry wins by default", func(t *testing.T) {
		b, m := newTestBridge()
		m.On("GetCompany", mock.Anything, "emp-1").Return(legacyCompany(), nil)
		m.On("ListCertificates", mock.Anything, "emp-1").Return(both, nil)
		require.NoError(t, b.Load(ctx, "emp-1"))
		assert.Equal(t, certificate.StrategyPreferNewSystem, b.DetermineMigrationStrategy())
	})

	t.Run("hybrid when configured", func(t *testing.T) {
		b, m := newTestBridge(WithPreferHybrid(true))
		m.On("GetCompany", mock.Anything, "emp-1").Return(legacyCompany(), nil)
		m.On("ListCertificates", mock.Anything, "emp-1").Return(both, nil)
		require.NoError(t, b.Load(ctx, "emp-1"))
		assert.Equal(t, certificate.StrategyHybrid, b.DetermineMigrationStrategy())
	})
}

func TestBridge_GetActiveUnifiedCertificate(t *testing.T) {
	ctx := context.Background()

	t.Run("registry record wins over active legacy", func(t *testing.T) {
		b, m := newTestBridge()
		m.On("GetCompany", mock.Anything, "emp-1").Return(legacyCompany(), nil)
		m.On("ListCertificates", mock.Anything, "emp-1").
			Return(certificate.Registry{Records: []certificate.Record{registryRecord("c1")}, ActiveID: "c1"}, nil)
		require.NoError(t, b.Load(ctx, "emp-1"))

		active := b.GetActiveUnifiedCertificate()
		assert.Equal(t, certificate.SourceRegistry, active.Source())
		r, ok := active.Record()
		require.True(t, ok)
		assert.Equal(t, "c1", r.ID)
	})

	t.Run("expired registry falls back to legacy", func(t *testing.T) {
		expired := registryRecord("c1")
		expired.ValidTo = now.Add(-time.Hour)

		b, m := newTestBridge()
		m.On("GetCompany", mock.Anything, "emp-1").Return(legacyCompany(), nil)
		m.On("ListCertificates", mock.Anything, "emp-1").
			Return(certificate.Registry{Records: []certificate.Record{expired}, ActiveID: "c1"}, nil)
		require.NoError(t, b.Load(ctx, "emp-1"))

		assert.Equal(t, certificate.SourceLegacy, b.GetActiveUnifiedCertificate().Source())
	})

	t.Run("nothing loaded is none", func(t *testing.T) {
		b, _ := newTestBridge()
		assert.True(t, b.GetActiveUnifiedCertificate().IsNone())
	})
}

func TestBridge_ExecuteMigration(t *testing.T) {
	ctx := context.Background()

	load := func(t *testing.T, b *Bridge, m *MockAuthority, registry certificate.Registry) {
		t.Helper()
		m.On("GetCompany", mock.Anything, "emp-1").Return(legacyCompany(), nil)
		m.On("ListCertificates", mock.Anything, "emp-1").Return(registry, nil)
		require.NoError(t, b.Load(ctx, "emp-1"))
	}

	t.Run("registers the synthesized record and turns legacy off", func(t *testing.T) {
		var views []certificate.LegacyView
		b, m := newTestBridge(WithConfigChange(func(_ context.Context, v certificate.LegacyView) {
			views = append(views, v)
		}))
		load(t, b, m, certificate.Registry{})

		created := registryRecord("m1")
		created.Filename = "20123456789.pfx"
		created.Origin = certificate.OriginLegacyMigration
		m.On("RegisterCertificate", mock.Anything, "emp-1", mock.MatchedBy(func(req certificate.MigrationRequest) bool {
			return req.Record.Filename == "20123456789.pfx" &&
				req.Record.Active &&
				req.Record.ValidFrom.Equal(now) &&
				req.Record.ValidTo.Equal(now.Add(certificate.MigratedValidity)) &&
				req.Password == "clave-secreta"
		})).Return(created, nil)
		m.On("SetLegacyActive", mock.Anything, "emp-1", false).Return(nil)

		got, err := b.ExecuteMigration(ctx)
		require.NoError(t, err)
		assert.Equal(t, "m1", got.ID)

		state := b.Snapshot()
		assert.Equal(t, StatusReady, state.Status)
		assert.False(t, state.Legacy.Active)
		assert.Equal(t, "m1", state.Registry.ActiveID)

		require.Len(t, views, 1)
		assert.Equal(t, certificate.SourceRegistry, views[0].Source)
		assert.Equal(t, "m1", views[0].ActiveID)
		assert.Equal(t, certificate.SourceRegistry, b.GetActiveUnifiedCertificate().Source())
	})

	t.Run("reuses an already migrated record", func(t *testing.T) {
		migrated := registryRecord("m1")
		migrated.Filename = "20123456789.pfx"
		migrated.Origin = certificate.OriginLegacyMigration

		b, m := newTestBridge()
		load(t, b, m, certificate.Registry{Records: []certificate.Record{migrated}})
		m.On("SetLegacyActive", mock.Anything, "emp-1", false).Return(nil)

		got, err := b.ExecuteMigration(ctx)
		require.NoError(t, err)
		assert.Equal(t, "m1", got.ID)
		m.AssertNotCalled(t, "RegisterCertificate", mock.Anything, mock.Anything, mock.Anything)
		m.AssertNumberOfCalls(t, "SetLegacyActive", 1)
	})

	t.Run("partial failure is retried without a second registration", func(t *testing.T) {
		b, m := newTestBridge()
		load(t, b, m, certificate.Registry{})

		created := registryRecord("m1")
		created.Filename = "20123456789.pfx"
		created.Origin = certificate.OriginLegacyMigration
		m.On("RegisterCertificate", mock.Anything, "emp-1", mock.Anything).Return(created, nil).Once()
		m.On("SetLegacyActive", mock.Anything, "emp-1", false).Return(shared.NewRemoteError(500, "")).Once()

		_, err := b.ExecuteMigration(ctx)
		require.ErrorIs(t, err, shared.ErrRemoteRejected)
		state := b.Snapshot()
		assert.Equal(t, StatusError, state.Status)
		assert.Equal(t, "request failed with status 500", state.Error)

		m.On("SetLegacyActive", mock.Anything, "emp-1", false).Return(nil).Once()
		got, err := b.ExecuteMigration(ctx)
		require.NoError(t, err)
		assert.Equal(t, "m1", got.ID)
		m.AssertNumberOfCalls(t, "RegisterCertificate", 1)
	})

	t.Run("registration failure leaves legacy untouched", func(t *testing.T) {
		b, m := newTestBridge()
		load(t, b, m, certificate.Registry{})
		m.On("RegisterCertificate", mock.Anything, "emp-1", mock.Anything).
			Return(certificate.Record{}, shared.NewRemoteError(422, "Certificado inválido"))

		_, err := b.ExecuteMigration(ctx)
		require.Error(t, err)
		assert.True(t, b.Snapshot().Legacy.Active)
		assert.Equal(t, StatusError, b.Snapshot().Status)
		m.AssertNotCalled(t, "SetLegacyActive", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("company without RUC fails validation", func(t *testing.T) {
		company := legacyCompany()
		company.RUC = ""
		b, m := newTestBridge()
		m.On("GetCompany", mock.Anything, "emp-1").Return(company, nil)
		m.On("ListCertificates", mock.Anything, "emp-1").Return(certificate.Registry{}, nil)
		require.NoError(t, b.Load(ctx, "emp-1"))

		_, err := b.ExecuteMigration(ctx)
		assert.ErrorIs(t, err, shared.ErrValidation)
		assert.Equal(t, StatusError, b.Snapshot().Status)
	})

	t.Run("requires a loaded company", func(t *testing.T) {
		b, _ := newTestBridge()
		_, err := b.ExecuteMigration(ctx)
		assert.ErrorIs(t, err, shared.ErrNotLoaded)
	})
}

func TestBridge_ForceSync(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	var views []certificate.LegacyView
	b, m := newTestBridge(WithConfigChange(func(_ context.Context, v certificate.LegacyView) {
		mu.Lock()
		defer mu.Unlock()
		views = append(views, v)
	}))

	m.On("GetCompany", mock.Anything, "emp-1").Return(legacyCompany(), nil)
	m.On("ListCertificates", mock.Anything, "emp-1").Return(certificate.Registry{}, nil).Once()
	require.NoError(t, b.Load(ctx, "emp-1"))

	m.On("ListCertificates", mock.Anything, "emp-1").
		Return(certificate.Registry{Records: []certificate.Record{registryRecord("c9")}, ActiveID: "c9"}, nil).Once()

	view, err := b.ForceSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, certificate.SourceRegistry, view.Source)
	assert.Equal(t, "c9.pfx", view.Path)
	assert.True(t, view.Active)
	assert.Equal(t, certificate.StrategyPreferNewSystem, view.Strategy)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, views, 1)
	assert.Equal(t, view, views[0])
}

func TestBridge_ForceSyncRequiresLoad(t *testing.T) {
	b, m := newTestBridge()
	_, err := b.ForceSync(context.Background())
	assert.ErrorIs(t, err, shared.ErrNotLoaded)
	m.AssertExpectations(t)
}

func TestBridge_RegistryWrites(t *testing.T) {
	ctx := context.Background()
	refreshed := certificate.Registry{Records: []certificate.Record{registryRecord("c2")}, ActiveID: "c2"}

	setup := func(t *testing.T) (*Bridge, *MockAuthority) {
		t.Helper()
		b, m := newTestBridge()
		m.On("GetCompany", mock.Anything, "emp-1").Return(legacyCompany(), nil)
		m.On("ListCertificates", mock.Anything, "emp-1").
			Return(certificate.Registry{Records: []certificate.Record{registryRecord("c1")}}, nil).Once()
		require.NoError(t, b.Load(ctx, "emp-1"))
		m.On("ListCertificates", mock.Anything, "emp-1").Return(refreshed, nil).Once()
		return b, m
	}

	t.Run("activate refreshes the registry", func(t *testing.T) {
		b, m := setup(t)
		m.On("ActivateCertificate", mock.Anything, "emp-1", "c2", "renovación").Return(nil)

		got, err := b.ActivateCertificate(ctx, "c2", "renovación")
		require.NoError(t, err)
		assert.Equal(t, refreshed, got)
		assert.Equal(t, "c2", b.Snapshot().Registry.ActiveID)
	})

	t.Run("deactivate refreshes the registry", func(t *testing.T) {
		b, m := setup(t)
		m.On("DeactivateCertificate", mock.Anything, "emp-1", "c1").Return(nil)

		_, err := b.DeactivateCertificate(ctx, "c1")
		require.NoError(t, err)
		m.AssertNumberOfCalls(t, "ListCertificates", 2)
	})

	t.Run("delete rejected keeps the registry", func(t *testing.T) {
		b, m := setup(t)
		m.On("DeleteCertificate", mock.Anything, "emp-1", "c1").Return(shared.NewRemoteError(409, "Certificado en uso"))

		_, err := b.DeleteCertificate(ctx, "c1")
		require.ErrorIs(t, err, shared.ErrRemoteRejected)
		state := b.Snapshot()
		assert.Equal(t, StatusError, state.Status)
		require.Len(t, state.Registry.Records, 1)
		assert.Equal(t, "c1", state.Registry.Records[0].ID)
	})

	t.Run("empty certificate id is rejected", func(t *testing.T) {
		b, m := newTestBridge()
		_, err := b.ActivateCertificate(ctx, "", "x")
		assert.ErrorIs(t, err, shared.ErrValidation)
		m.AssertExpectations(t)
	})
}

func TestBridge_Expiring(t *testing.T) {
	soon := registryRecord("soon")
	soon.ValidTo = now.AddDate(0, 0, 5)

	b, m := newTestBridge(WithExpiryWarningDays(10))
	m.On("GetCompany", mock.Anything, "emp-1").Return(legacyCompany(), nil)
	m.On("ListCertificates", mock.Anything, "emp-1").
		Return(certificate.Registry{Records: []certificate.Record{soon, registryRecord("later")}}, nil)
	require.NoError(t, b.Load(context.Background(), "emp-1"))

	got := b.Expiring()
	require.Len(t, got, 1)
	assert.Equal(t, "soon", got[0].ID)
}

func TestBridge_Close(t *testing.T) {
	ctx := context.Background()
	b, m := newTestBridge()

	started := make(chan struct{})
	release := make(chan struct{})
	m.On("GetCompany", mock.Anything, "emp-1").Return(legacyCompany(), nil)
	m.On("ListCertificates", mock.Anything, "emp-1").
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(certificate.Registry{}, nil)

	done := make(chan error, 1)
	go func() { done <- b.Load(ctx, "emp-1") }()
	<-started
	b.Close()
	close(release)
	require.NoError(t, <-done)

	state := b.Snapshot()
	assert.Empty(t, state.CompanyID)
	assert.Equal(t, StatusLoading, state.Status)

	assert.ErrorIs(t, b.Load(ctx, "emp-1"), ErrBridgeClosed)
	_, err := b.ExecuteMigration(ctx)
	assert.ErrorIs(t, err, ErrBridgeClosed)
}

func TestBridge_LogsNeverCarryPassword(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	b, m := newTestBridge(WithLogger(zap.New(core)))
	m.On("GetCompany", mock.Anything, "emp-1").Return(legacyCompany(), nil)
	m.On("ListCertificates", mock.Anything, "emp-1").Return(certificate.Registry{}, nil)
	m.On("RegisterCertificate", mock.Anything, "emp-1", mock.Anything).
		Return(certificate.Record{}, shared.NewRemoteError(400, "Contraseña incorrecta"))

	require.NoError(t, b.Load(context.Background(), "emp-1"))
	_, _ = b.ExecuteMigration(context.Background())

	require.NotZero(t, logs.Len())
	for _, entry := range logs.All() {
		for _, f := range entry.Context {
			assert.NotContains(t, f.String, "clave-secreta")
		}
	}
}
