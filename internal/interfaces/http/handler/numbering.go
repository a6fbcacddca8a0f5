package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	appnumbering "github.com/jonathanEDR/facturadorfront-sub001/internal/application/numbering"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/interfaces/http/dto"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/interfaces/http/middleware"
)

// NumberingHandler exposes the numbering registry of the caller's company
type NumberingHandler struct {
	BaseHandler
	sessions *appnumbering.Sessions
}

// NewNumberingHandler creates a new NumberingHandler
func NewNumberingHandler(sessions *appnumbering.Sessions) *NumberingHandler {
	return &NumberingHandler{sessions: sessions}
}

// RegisterRoutes registers the /numeracion routes
func (h *NumberingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/numeracion")
	g.GET("/series", h.ListSeries)
	g.GET("/contadores", h.ListCounters)
	g.POST("/configurar", h.Configure)
	g.POST("/configurar-masiva", h.ConfigureBulk)
	g.GET("/siguiente/:serie", h.NextNumber)
	g.POST("/resetear/:serie", h.Reset)
	g.PATCH("/contador/:serie/estado", h.SetActive)
	g.GET("/estado", h.State)
	g.DELETE("/estado/error", h.ClearError)
}

func (h *NumberingHandler) registry(c *gin.Context) *appnumbering.Registry {
	return h.sessions.For(middleware.GetSessionScope(c))
}

// ListSeries returns the series known to the backend. Failures yield an
// empty list; the error is kept on the registry state.
func (h *NumberingHandler) ListSeries(c *gin.Context) {
	series := h.registry(c).ListSeries(c.Request.Context())
	c.JSON(http.StatusOK, dto.NewListResponse(series))
}

// ListCounters returns every counter and refreshes the cached set
func (h *NumberingHandler) ListCounters(c *gin.Context) {
	counters, err := h.registry(c).ListCounters(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(counters))
}

// Configure creates or updates one series counter
func (h *NumberingHandler) Configure(c *gin.Context) {
	var req dto.ConfigureSeriesRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cfg := req.ToDomain()
	counter, err := h.registry(c).Configure(c.Request.Context(), cfg.SeriesCode, cfg.InitialNumber, cfg.Active)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, counter)
}

// ConfigureBulk configures several series in one call
func (h *NumberingHandler) ConfigureBulk(c *gin.Context) {
	var req dto.ConfigureBulkRequest
	if !h.BindJSON(c, &req) {
		return
	}
	counters, err := h.registry(c).ConfigureBulk(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(counters))
}

// NextNumber returns the advisory next number of a series
func (h *NumberingHandler) NextNumber(c *gin.Context) {
	next, err := h.registry(c).NextNumber(c.Request.Context(), c.Param("serie"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewNextNumberResponse(next))
}

// Reset moves a counter to a new number
func (h *NumberingHandler) Reset(c *gin.Context) {
	var req dto.ResetSeriesRequest
	if !h.BindJSON(c, &req) {
		return
	}
	counter, err := h.registry(c).Reset(c.Request.Context(), c.Param("serie"), *req.NuevoNumero)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, counter)
}

// SetActive enables or disables a series
func (h *NumberingHandler) SetActive(c *gin.Context) {
	var req dto.SetSeriesStateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	counter, err := h.registry(c).SetActive(c.Request.Context(), c.Param("serie"), *req.Activo)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, counter)
}

// State returns the cached registry state of the caller's session
func (h *NumberingHandler) State(c *gin.Context) {
	h.Success(c, h.registry(c).Snapshot())
}

// ClearError forgets the last recorded registry error
func (h *NumberingHandler) ClearError(c *gin.Context) {
	r := h.registry(c)
	r.ClearError()
	h.Success(c, r.Snapshot())
}
