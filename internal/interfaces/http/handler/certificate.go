package handler

import (
	"github.com/gin-gonic/gin"
	appcert "github.com/jonathanEDR/facturadorfront-sub001/internal/application/certificate"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/certificate"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/interfaces/http/dto"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/interfaces/http/middleware"
)

// CertificateHandler exposes the certificate bridge of a company. Every
// request loads a fresh bridge; repeated reads are absorbed by the
// authority client's response cache.
type CertificateHandler struct {
	BaseHandler
	authority appcert.Authority
	options   []appcert.Option
}

// NewCertificateHandler creates a new CertificateHandler
func NewCertificateHandler(authority appcert.Authority, opts ...appcert.Option) *CertificateHandler {
	return &CertificateHandler{authority: authority, options: opts}
}

// RegisterRoutes registers the /empresas/:id/certificados routes
func (h *CertificateHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/empresas/:id/certificados")
	g.GET("", h.List)
	g.GET("/estado", h.Status)
	g.POST("/migrar", h.Migrate)
	g.POST("/sincronizar", h.Sync)
	g.PUT("/:certId/activar", h.Activate)
	g.PUT("/:certId/desactivar", h.Deactivate)
	g.DELETE("/:certId", h.Delete)
}

// load loads the bridge of the company in the path. A token claiming another
// company fails fast; the claim is unverified, so access itself is decided by
// the backend on every call the caller's own cached reads do not answer.
func (h *CertificateHandler) load(c *gin.Context) (*appcert.Bridge, bool) {
	companyID := c.Param("id")
	if own := middleware.GetCompanyID(c); own != "" && own != companyID {
		h.Forbidden(c, "Token does not belong to this company")
		return nil, false
	}
	bridge := appcert.NewBridge(h.authority, h.options...)
	if err := bridge.Load(c.Request.Context(), companyID); err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	return bridge, true
}

// List returns the certificate registry of the company
func (h *CertificateHandler) List(c *gin.Context) {
	bridge, ok := h.load(c)
	if !ok {
		return
	}
	h.Success(c, bridge.Snapshot().Registry)
}

// Status returns presence, strategy and the resolved active certificate
func (h *CertificateHandler) Status(c *gin.Context) {
	bridge, ok := h.load(c)
	if !ok {
		return
	}
	state := bridge.Snapshot()
	expiring := bridge.Expiring()
	if expiring == nil {
		expiring = []certificate.Record{}
	}
	h.Success(c, dto.CertificateStatusResponse{
		CompanyID: state.CompanyID,
		Presence:  state.Presence,
		Strategy:  state.Strategy,
		Active:    dto.NewActiveCertificateResponse(bridge.GetActiveUnifiedCertificate()),
		Registry:  state.Registry,
		Legacy:    state.Legacy,
		View:      bridge.LegacyView(),
		Expiring:  expiring,
		SyncedAt:  state.SyncedAt,
	})
}

// Migrate copies the legacy certificate into the registry
func (h *CertificateHandler) Migrate(c *gin.Context) {
	bridge, ok := h.load(c)
	if !ok {
		return
	}
	record, err := bridge.ExecuteMigration(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.MigrationResponse{Record: record, View: bridge.LegacyView()})
}

// Sync re-reads both representations and returns the legacy-shaped view
func (h *CertificateHandler) Sync(c *gin.Context) {
	bridge, ok := h.load(c)
	if !ok {
		return
	}
	view, err := bridge.ForceSync(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Activate makes a registry certificate the active one
func (h *CertificateHandler) Activate(c *gin.Context) {
	var req dto.ActivateCertificateRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	bridge, ok := h.load(c)
	if !ok {
		return
	}
	registry, err := bridge.ActivateCertificate(c.Request.Context(), c.Param("certId"), req.Razon)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, registry)
}

// Deactivate disables a registry certificate
func (h *CertificateHandler) Deactivate(c *gin.Context) {
	bridge, ok := h.load(c)
	if !ok {
		return
	}
	registry, err := bridge.DeactivateCertificate(c.Request.Context(), c.Param("certId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, registry)
}

// Delete removes a registry certificate
func (h *CertificateHandler) Delete(c *gin.Context) {
	bridge, ok := h.load(c)
	if !ok {
		return
	}
	registry, err := bridge.DeleteCertificate(c.Request.Context(), c.Param("certId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, registry)
}
