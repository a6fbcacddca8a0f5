package certificate

import (
	"math"
	"sort"
	"time"
)

// Origin tells how a registry record came to exist
type Origin string

const (
	// OriginUpload is a certificate uploaded through the registry
	OriginUpload Origin = "upload"
	// OriginLegacyMigration is a record synthesized from the legacy company fields
	OriginLegacyMigration Origin = "legacy_migration"
)

// Record is one certificate of the registry
type Record struct {
	ID                   string    `json:"id"`
	OwnerCompanyID       string    `json:"empresa_id"`
	Filename             string    `json:"filename"`
	Subject              string    `json:"subject"`
	Issuer               string    `json:"issuer"`
	SerialNumber         string    `json:"serial_number,omitempty"`
	ValidFrom            time.Time `json:"valid_from"`
	ValidTo              time.Time `json:"valid_to"`
	Active               bool      `json:"activo"`
	ValidatedByAuthority bool      `json:"validado_sunat"`
	Origin               Origin    `json:"origen,omitempty"`
	CreatedAt            time.Time `json:"created_at,omitzero"`
}

// IsCurrent returns true if now falls inside the validity window [ValidFrom, ValidTo)
func (r Record) IsCurrent(now time.Time) bool {
	return !now.Before(r.ValidFrom) && now.Before(r.ValidTo)
}

// IsUsable returns true if the record is active and inside its validity window
func (r Record) IsUsable(now time.Time) bool {
	return r.Active && r.IsCurrent(now)
}

// DaysUntilExpiry returns the remaining days rounded up; negative once expired
func (r Record) DaysUntilExpiry(now time.Time) int {
	return int(math.Ceil(r.ValidTo.Sub(now).Hours() / 24))
}

// Registry is the certificate list of one company as reported by the authority
type Registry struct {
	Records  []Record `json:"certificados"`
	ActiveID string   `json:"certificado_activo_id,omitempty"`
}

// HasAny returns true if the registry holds at least one record
func (g Registry) HasAny() bool {
	return len(g.Records) > 0
}

// Find returns the record with the given id
func (g Registry) Find(id string) (Record, bool) {
	for _, r := range g.Records {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

// Active returns the authoritative record: the one flagged by ActiveID when it
// is usable, otherwise the usable record expiring last.
func (g Registry) Active(now time.Time) (Record, bool) {
	if g.ActiveID != "" {
		if r, ok := g.Find(g.ActiveID); ok && r.IsUsable(now) {
			return r, true
		}
	}

	usable := make([]Record, 0, len(g.Records))
	for _, r := range g.Records {
		if r.IsUsable(now) {
			usable = append(usable, r)
		}
	}
	if len(usable) == 0 {
		return Record{}, false
	}
	sort.SliceStable(usable, func(i, j int) bool {
		return usable[i].ValidTo.After(usable[j].ValidTo)
	})
	return usable[0], true
}

// FindMigrated returns the record previously synthesized from the legacy file
func (g Registry) FindMigrated(legacy LegacyConfig) (Record, bool) {
	name := legacy.Filename()
	if name == "" {
		return Record{}, false
	}
	for _, r := range g.Records {
		if r.Origin == OriginLegacyMigration && r.Filename == name {
			return r, true
		}
	}
	return Record{}, false
}

// Expiring returns usable records that expire within the given number of days
func (g Registry) Expiring(now time.Time, withinDays int) []Record {
	var out []Record
	for _, r := range g.Records {
		if r.IsUsable(now) && r.DaysUntilExpiry(now) <= withinDays {
			out = append(out, r)
		}
	}
	return out
}
