package handler

import (
	"context"
	"net/http"
	"testing"

	appnumbering "github.com/jonathanEDR/facturadorfront-sub001/internal/application/numbering"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/numbering"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/shared"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/infrastructure/auth"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupNumbering(t *testing.T) (*MockNumberingAuthority, *appnumbering.Sessions, string, func(method, path string, body any) (int, dto.Response)) {
	t.Helper()
	m := new(MockNumberingAuthority)
	sessions := appnumbering.NewSessions(m, nil)
	engine := newTestEngine(t, NewNumberingHandler(sessions))
	token := companyToken(t, "emp-1")
	do := func(method, path string, body any) (int, dto.Response) {
		w, resp := call(t, engine, method, path, token, body)
		return w.Code, resp
	}
	return m, sessions, token, do
}

func TestNumberingHandler_ListSeries(t *testing.T) {
	t.Run("forwards the caller token", func(t *testing.T) {
		m, _, token, do := setupNumbering(t)
		m.On("ListSeries", mock.MatchedBy(func(ctx context.Context) bool {
			return auth.TokenFromContext(ctx) == token
		})).Return([]string{"F001", "B001"}, nil)

		status, resp := do(http.MethodGet, "/api/v1/numeracion/series", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, resp.Success)
		assert.Equal(t, []any{"F001", "B001"}, resp.Data)
		assert.Equal(t, 2, resp.Meta.Total)
	})

	t.Run("fails open", func(t *testing.T) {
		m, sessions, token, do := setupNumbering(t)
		m.On("ListSeries", mock.Anything).Return(nil, shared.NewRemoteError(500, ""))

		status, resp := do(http.MethodGet, "/api/v1/numeracion/series", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, []any{}, resp.Data)

		state := sessions.For(auth.Scope(token)).Snapshot()
		assert.Equal(t, "request failed with status 500", state.Error)
	})
}

func TestNumberingHandler_SessionIsolation(t *testing.T) {
	m := new(MockNumberingAuthority)
	sessions := appnumbering.NewSessions(m, nil)
	engine := newTestEngine(t, NewNumberingHandler(sessions))
	victim := companyToken(t, "emp-1")
	forged := companyTokenSignedWith(t, "emp-1", "made-up-key")

	m.On("Configure", mock.Anything, numbering.CounterConfig{SeriesCode: "F001", InitialNumber: 42, Active: true}).
		Return(numbering.SeriesCounter{SeriesCode: "F001", CurrentNumber: 42, InitialNumber: 42, Active: true}, nil).Once()

	w, _ := call(t, engine, http.MethodPost, "/api/v1/numeracion/configurar", victim, map[string]any{"serie": "F001", "numero_inicial": 42})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := call(t, engine, http.MethodGet, "/api/v1/numeracion/estado", forged, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snapshot appnumbering.State
	decode(t, resp.Data, &snapshot)
	assert.Empty(t, snapshot.Counters)

	assert.Equal(t, 2, sessions.Len())
	m.AssertExpectations(t)
}

func TestNumberingHandler_Configure(t *testing.T) {
	t.Run("configures a series", func(t *testing.T) {
		m, _, _, do := setupNumbering(t)
		m.On("Configure", mock.Anything, numbering.CounterConfig{SeriesCode: "F001", InitialNumber: 1, Active: true}).
			Return(numbering.SeriesCounter{SeriesCode: "F001", CurrentNumber: 1, InitialNumber: 1, Active: true}, nil)

		status, resp := do(http.MethodPost, "/api/v1/numeracion/configurar", map[string]any{"serie": "f001", "numero_inicial": 1})
		require.Equal(t, http.StatusOK, status)

		var counter numbering.SeriesCounter
		decode(t, resp.Data, &counter)
		assert.Equal(t, "F001", counter.SeriesCode)

		_, state := do(http.MethodGet, "/api/v1/numeracion/estado", nil)
		var snapshot appnumbering.State
		decode(t, state.Data, &snapshot)
		require.Len(t, snapshot.Counters, 1)
	})

	t.Run("invalid body never reaches the backend", func(t *testing.T) {
		m, _, _, do := setupNumbering(t)

		status, resp := do(http.MethodPost, "/api/v1/numeracion/configurar", map[string]any{"serie": "F1", "numero_inicial": -3})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Len(t, resp.Error.Details, 2)
		m.AssertNotCalled(t, "Configure", mock.Anything, mock.Anything)
	})

	t.Run("backend rejection keeps its status", func(t *testing.T) {
		m, _, _, do := setupNumbering(t)
		m.On("Configure", mock.Anything, mock.Anything).
			Return(numbering.SeriesCounter{}, shared.NewRemoteError(http.StatusConflict, "La serie ya existe"))

		status, resp := do(http.MethodPost, "/api/v1/numeracion/configurar", map[string]any{"serie": "F001", "numero_inicial": 1})
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, dto.ErrCodeUpstreamRejected, resp.Error.Code)
		assert.Equal(t, "La serie ya existe", resp.Error.Message)
		assert.NotEmpty(t, resp.Error.RequestID)
	})

	t.Run("unreachable backend is a 502", func(t *testing.T) {
		m, _, _, do := setupNumbering(t)
		m.On("Configure", mock.Anything, mock.Anything).
			Return(numbering.SeriesCounter{}, shared.NewTransportError(assert.AnError))

		status, resp := do(http.MethodPost, "/api/v1/numeracion/configurar", map[string]any{"serie": "F001", "numero_inicial": 1})
		assert.Equal(t, http.StatusBadGateway, status)
		assert.Equal(t, dto.ErrCodeUpstreamUnavailable, resp.Error.Code)
	})
}

func TestNumberingHandler_ConfigureBulk(t *testing.T) {
	m, _, _, do := setupNumbering(t)
	m.On("ConfigureBulk", mock.Anything, mock.Anything).Return([]numbering.SeriesCounter{
		{SeriesCode: "F001", CurrentNumber: 1, InitialNumber: 1, Active: true},
		{SeriesCode: "B001", CurrentNumber: 1, InitialNumber: 1, Active: true},
	}, nil)

	status, resp := do(http.MethodPost, "/api/v1/numeracion/configurar-masiva", map[string]any{
		"configuraciones": []map[string]any{
			{"serie": "F001", "numero_inicial": 1},
			{"serie": "B001", "numero_inicial": 1},
		},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, resp.Meta.Total)

	status, resp = do(http.MethodPost, "/api/v1/numeracion/configurar-masiva", map[string]any{
		"configuraciones": []map[string]any{
			{"serie": "F001", "numero_inicial": 1},
			{"serie": "f001", "numero_inicial": 2},
		},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	m.AssertNumberOfCalls(t, "ConfigureBulk", 1)
}

func TestNumberingHandler_NextNumber(t *testing.T) {
	m, _, _, do := setupNumbering(t)
	m.On("NextNumber", mock.Anything, "F001").Return(numbering.NextNumber{SeriesCode: "F001", Number: 125}, nil)

	status, resp := do(http.MethodGet, "/api/v1/numeracion/siguiente/f001", nil)
	require.Equal(t, http.StatusOK, status)

	var next dto.NextNumberResponse
	decode(t, resp.Data, &next)
	assert.Equal(t, dto.NextNumberResponse{Serie: "F001", SiguienteNumero: 125, Formateado: "F001-00000125"}, next)
}

func TestNumberingHandler_Reset(t *testing.T) {
	m, _, _, do := setupNumbering(t)

	status, resp := do(http.MethodPost, "/api/v1/numeracion/resetear/F001", map[string]any{"nuevo_numero": -1})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	m.AssertNotCalled(t, "Reset", mock.Anything, mock.Anything, mock.Anything)

	_, state := do(http.MethodGet, "/api/v1/numeracion/estado", nil)
	var snapshot appnumbering.State
	decode(t, state.Data, &snapshot)
	assert.NotEmpty(t, snapshot.Error)

	_, cleared := do(http.MethodDelete, "/api/v1/numeracion/estado/error", nil)
	var after appnumbering.State
	decode(t, cleared.Data, &after)
	assert.Empty(t, after.Error)

	status, _ = do(http.MethodPost, "/api/v1/numeracion/resetear/F001", `{"nuevo_numero":`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestNumberingHandler_SetActive(t *testing.T) {
	m, _, _, do := setupNumbering(t)
	m.On("SetActive", mock.Anything, "B001", false).
		Return(numbering.SeriesCounter{SeriesCode: "B001", CurrentNumber: 9, InitialNumber: 1}, nil)

	status, _ := do(http.MethodPatch, "/api/v1/numeracion/contador/B001/estado", map[string]any{"activo": false})
	assert.Equal(t, http.StatusOK, status)

	status, resp := do(http.MethodPatch, "/api/v1/numeracion/contador/B001/estado", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "activo", resp.Error.Details[0].Field)
}

func TestNumberingHandler_RequiresSession(t *testing.T) {
	m := new(MockNumberingAuthority)
	engine := newTestEngine(t, NewNumberingHandler(appnumbering.NewSessions(m, nil)))

	w, resp := call(t, engine, http.MethodGet, "/api/v1/numeracion/series", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeUnauthorized, resp.Error.Code)
	m.AssertNotCalled(t, "ListSeries", mock.Anything)
}
