package dto

import (
	"time"

	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/certificate"
)

// ActivateCertificateRequest makes a registry certificate the active one
type ActivateCertificateRequest struct {
	Razon string `json:"razon" binding:"max=255"`
}

// ActiveCertificateResponse renders the resolved active certificate
type ActiveCertificateResponse struct {
	Source     certificate.Source  `json:"source"`
	Record     *certificate.Record `json:"certificado,omitempty"`
	LegacyPath string              `json:"certificado_digital_path,omitempty"`
}

// NewActiveCertificateResponse flattens the tagged active certificate
func NewActiveCertificateResponse(a certificate.ActiveCertificate) ActiveCertificateResponse {
	resp := ActiveCertificateResponse{Source: a.Source()}
	if r, ok := a.Record(); ok {
		resp.Record = &r
	}
	if l, ok := a.Legacy(); ok {
		resp.LegacyPath = l.Path
	}
	return resp
}

// CertificateStatusResponse is the full status of a company's certificates
type CertificateStatusResponse struct {
	CompanyID string                        `json:"empresa_id"`
	Presence  certificate.Presence          `json:"presence"`
	Strategy  certificate.MigrationStrategy `json:"strategy"`
	Active    ActiveCertificateResponse     `json:"active"`
	Registry  certificate.Registry          `json:"registry"`
	Legacy    certificate.LegacyConfig      `json:"legacy"`
	View      certificate.LegacyView        `json:"legacy_view"`
	Expiring  []certificate.Record          `json:"expiring"`
	SyncedAt  time.Time                     `json:"synced_at,omitzero"`
}

// MigrationResponse is the outcome of a legacy migration
type MigrationResponse struct {
	Record certificate.Record     `json:"certificado"`
	View   certificate.LegacyView `json:"legacy_view"`
}
