package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/certificate"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/numbering"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/infrastructure/auth"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/interfaces/http/dto"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/interfaces/http/router"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockNumberingAuthority is a mock of the numbering registry port
type MockNumberingAuthority struct {
	mock.Mock
}

func (m *MockNumberingAuthority) ListSeries(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockNumberingAuthority) ListCounters(ctx context.Context) ([]numbering.SeriesCounter, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]numbering.SeriesCounter), args.Error(1)
}

func (m *MockNumberingAuthority) Configure(ctx context.Context, cfg numbering.CounterConfig) (numbering.SeriesCounter, error) {
	args := m.Called(ctx, cfg)
	return args.Get(0).(numbering.SeriesCounter), args.Error(1)
}

func (m *MockNumberingAuthority) ConfigureBulk(ctx context.Context, configs []numbering.CounterConfig) ([]numbering.SeriesCounter, error) {
	args := m.Called(ctx, configs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]numbering.SeriesCounter), args.Error(1)
}

func (m *MockNumberingAuthority) NextNumber(ctx context.Context, series string) (numbering.NextNumber, error) {
	args := m.Called(ctx, series)
	return args.Get(0).(numbering.NextNumber), args.Error(1)
}

func (m *MockNumberingAuthority) Reset(ctx context.Context, series string, newNumber int64) (numbering.SeriesCounter, error) {
	args := m.Called(ctx, series, newNumber)
	return args.Get(0).(numbering.SeriesCounter), args.Error(1)
}

func (m *MockNumberingAuthority) SetActive(ctx context.Context, series string, active bool) (numbering.SeriesCounter, error) {
	args := m.Called(ctx, series, active)
	return args.Get(0).(numbering.SeriesCounter), args.Error(1)
}

// MockCertificateAuthority is a mock of the certificate bridge port
type MockCertificateAuthority struct {
	mock.Mock
}

func (m *MockCertificateAuthority) GetCompany(ctx context.Context, companyID string) (certificate.Company, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).(certificate.Company), args.Error(1)
}

func (m *MockCertificateAuthority) ListCertificates(ctx context.Context, companyID string) (certificate.Registry, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).(certificate.Registry), args.Error(1)
}

func (m *MockCertificateAuthority) RegisterCertificate(ctx context.Context, companyID string, req certificate.MigrationRequest) (certificate.Record, error) {
	args := m.Called(ctx, companyID, req)
	return args.Get(0).(certificate.Record), args.Error(1)
}

func (m *MockCertificateAuthority) ActivateCertificate(ctx context.Context, companyID, certID, reason string) error {
	return m.Called(ctx, companyID, certID, reason).Error(0)
}

func (m *MockCertificateAuthority) DeactivateCertificate(ctx context.Context, companyID, certID string) error {
	return m.Called(ctx, companyID, certID).Error(0)
}

func (m *MockCertificateAuthority) DeleteCertificate(ctx context.Context, companyID, certID string) error {
	return m.Called(ctx, companyID, certID).Error(0)
}

func (m *MockCertificateAuthority) SetLegacyActive(ctx context.Context, companyID string, active bool) error {
	return m.Called(ctx, companyID, active).Error(0)
}

func companyToken(t *testing.T, companyID string) string {
	t.Helper()
	return companyTokenSignedWith(t, companyID, "backend-secret")
}

func companyTokenSignedWith(t *testing.T, companyID, key string) string {
	t.Helper()
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		CompanyID:        companyID,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func newTestEngine(t *testing.T, api ...router.RouteRegistrar) *gin.Engine {
	t.Helper()
	engine, err := router.NewEngine(router.EngineConfig{}, nil, api...)
	require.NoError(t, err)
	return engine
}

// call performs a request with the given token and decodes the envelope
func call(t *testing.T, engine *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		if s, ok := body.(string); ok {
			reader = bytes.NewBufferString(s)
		} else {
			raw, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var resp dto.Response
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

// decode re-marshals the envelope data into out
func decode(t *testing.T, data any, out any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}
