package certificate

import "time"

// LegacyView is the legacy-shaped configuration consumed by code that predates
// the registry. It is always derived from the registry toward the legacy shape,
// never the other way around.
type LegacyView struct {
	CompanyID       string            `json:"empresa_id"`
	Path            string            `json:"certificado_digital_path"`
	Active          bool              `json:"certificado_digital_activo"`
	ActiveID        string            `json:"certificado_activo_id,omitempty"`
	Source          Source            `json:"source"`
	Strategy        MigrationStrategy `json:"strategy"`
	ValidTo         *time.Time        `json:"valid_to,omitempty"`
	DaysUntilExpiry *int              `json:"days_until_expiry,omitempty"`
	Validated       bool              `json:"validado_sunat"`
}

// BuildLegacyView projects the resolved active certificate onto the legacy shape
func BuildLegacyView(companyID string, registry Registry, legacy LegacyConfig, strategy MigrationStrategy, now time.Time) LegacyView {
	view := LegacyView{
		CompanyID: companyID,
		Strategy:  strategy,
	}

	active := ResolveActive(registry, legacy, now)
	view.Source = active.Source()

	switch active.Source() {
	case SourceRegistry:
		r, _ := active.Record()
		validTo := r.ValidTo
		days := r.DaysUntilExpiry(now)
		view.Path = r.Filename
		view.Active = true
		view.ActiveID = r.ID
		view.ValidTo = &validTo
		view.DaysUntilExpiry = &days
		view.Validated = r.ValidatedByAuthority
	case SourceLegacy:
		l, _ := active.Legacy()
		view.Path = l.Path
		view.Active = l.Active
	default:
		view.Path = legacy.Path
		view.Active = false
	}
	return view
}
