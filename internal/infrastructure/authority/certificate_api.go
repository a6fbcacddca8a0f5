package authority

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/certificate"
)

func companyPath(companyID string) string {
	return "/empresas/" + url.PathEscape(companyID)
}

func certificatePath(companyID, certID string) string {
	return companyPath(companyID) + "/certificados/" + url.PathEscape(certID)
}

// companyDTO is the company resource including its legacy certificate fields
type companyDTO struct {
	ID             flexibleID `json:"id"`
	RUC            string     `json:"ruc"`
	LegalName      string     `json:"razon_social"`
	LegacyPath     string     `json:"certificado_digital_path"`
	LegacyPassword string     `json:"certificado_digital_password"`
	LegacyActive   bool       `json:"certificado_digital_activo"`
}

func (d companyDTO) toDomain(fallbackID string) certificate.Company {
	id := string(d.ID)
	if id == "" {
		id = fallbackID
	}
	return certificate.Company{
		ID:        id,
		RUC:       d.RUC,
		LegalName: d.LegalName,
		Legacy: certificate.LegacyConfig{
			Path:     d.LegacyPath,
			Password: d.LegacyPassword,
			Active:   d.LegacyActive,
		},
	}
}

// registerBody is the payload that registers a migrated certificate
type registerBody struct {
	Filename  string             `json:"filename"`
	Subject   string             `json:"subject"`
	Issuer    string             `json:"issuer"`
	ValidFrom time.Time          `json:"valid_from"`
	ValidTo   time.Time          `json:"valid_to"`
	Active    bool               `json:"activo"`
	Origin    certificate.Origin `json:"origen"`
	Path      string             `json:"certificado_path"`
	Password  string             `json:"password,omitempty"`
}

type activateBody struct {
	Reason string `json:"razon"`
}

type legacyUpdateBody struct {
	Active bool `json:"certificado_digital_activo"`
}

// GetCompany returns the company identity and its legacy certificate fields
func (c *Client) GetCompany(ctx context.Context, companyID string) (certificate.Company, error) {
	var dto companyDTO
	err := c.do(ctx, request{
		op:      "get_company",
		method:  http.MethodGet,
		path:    companyPath(companyID),
		company: companyID,
		cached:  true,
	}, &dto)
	if err != nil {
		return certificate.Company{}, err
	}
	return dto.toDomain(companyID), nil
}

// ListCertificates returns the certificate registry of a company
func (c *Client) ListCertificates(ctx context.Context, companyID string) (certificate.Registry, error) {
	var registry certificate.Registry
	err := c.do(ctx, request{
		op:      "list_certificates",
		method:  http.MethodGet,
		path:    companyPath(companyID) + "/certificados",
		company: companyID,
		cached:  true,
	}, &registry)
	return registry, err
}

// RegisterCertificate creates a registry record from a migration request
func (c *Client) RegisterCertificate(ctx context.Context, companyID string, req certificate.MigrationRequest) (certificate.Record, error) {
	r := req.Record
	var created certificate.Record
	err := c.do(ctx, request{
		op:      "register_certificate",
		method:  http.MethodPost,
		path:    companyPath(companyID) + "/certificados",
		company: companyID,
		body: registerBody{
			Filename:  r.Filename,
			Subject:   r.Subject,
			Issuer:    r.Issuer,
			ValidFrom: r.ValidFrom,
			ValidTo:   r.ValidTo,
			Active:    r.Active,
			Origin:    r.Origin,
			Path:      req.Path,
			Password:  req.Password,
		},
		invalidates: []string{companyPath(companyID)},
	}, &created)
	if err != nil {
		return certificate.Record{}, err
	}
	// Fill what the authority may omit in its answer
	if created.Origin == "" {
		created.Origin = r.Origin
	}
	if created.OwnerCompanyID == "" {
		created.OwnerCompanyID = companyID
	}
	return created, nil
}

// ActivateCertificate makes certID the active certificate of the company
func (c *Client) ActivateCertificate(ctx context.Context, companyID, certID, reason string) error {
	return c.do(ctx, request{
		op:          "activate_certificate",
		method:      http.MethodPut,
		path:        certificatePath(companyID, certID) + "/activate",
		body:        activateBody{Reason: reason},
		company:     companyID,
		invalidates: []string{companyPath(companyID)},
	}, nil)
}

// DeactivateCertificate disables certID
func (c *Client) DeactivateCertificate(ctx context.Context, companyID, certID string) error {
	return c.do(ctx, request{
		op:          "deactivate_certificate",
		method:      http.MethodPut,
		path:        certificatePath(companyID, certID) + "/deactivate",
		company:     companyID,
		invalidates: []string{companyPath(companyID)},
	}, nil)
}

// DeleteCertificate removes certID from the registry
func (c *Client) DeleteCertificate(ctx context.Context, companyID, certID string) error {
	return c.do(ctx, request{
		op:          "delete_certificate",
		method:      http.MethodDelete,
		path:        certificatePath(companyID, certID),
		company:     companyID,
		invalidates: []string{companyPath(companyID)},
	}, nil)
}

// SetLegacyActive updates the active flag of the legacy certificate fields
func (c *Client) SetLegacyActive(ctx context.Context, companyID string, active bool) error {
	return c.do(ctx, request{
		op:          "set_legacy_active",
		method:      http.MethodPatch,
		path:        companyPath(companyID) + "/certificado-legacy",
		body:        legacyUpdateBody{Active: active},
		company:     companyID,
		invalidates: []string{companyPath(companyID)},
	}, nil)
}
