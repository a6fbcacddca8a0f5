package certificate

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/shared"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// MigratedValidity is the validity window given to records synthesized from legacy data
const MigratedValidity = 365 * 24 * time.Hour

// MigrationRequest is the registry record to create from legacy data, together
// with the legacy password the authority needs to open the file.
type MigrationRequest struct {
	Record   Record
	Path     string
	Password string
}

// NewMigrationRequest synthesizes a registry record from the legacy fields of a
// company. Subject and issuer are derived from the company identity because the
// legacy model never stored them.
func NewMigrationRequest(company Company, now time.Time) (MigrationRequest, error) {
	legacy := company.Legacy
	if !legacy.HasData() {
		return MigrationRequest{}, shared.NewValidationError("Company %s has no legacy certificate to migrate", company.ID)
	}
	if strings.TrimSpace(company.RUC) == "" {
		return MigrationRequest{}, shared.NewValidationError("Company %s has no RUC; cannot build certificate subject", company.ID)
	}

	name := normalizeName(company.LegalName)
	if name == "" {
		name = company.RUC
	}

	record := Record{
		OwnerCompanyID: company.ID,
		Filename:       legacy.Filename(),
		Subject:        fmt.Sprintf("CN=%s, SERIALNUMBER=RUC%s, C=PE", name, company.RUC),
		Issuer:         fmt.Sprintf("CN=%s, O=Migrated legacy certificate, C=PE", name),
		ValidFrom:      now,
		ValidTo:        now.Add(MigratedValidity),
		Active:         true,
		Origin:         OriginLegacyMigration,
		CreatedAt:      now,
	}

	return MigrationRequest{
		Record:   record,
		Path:     legacy.Path,
		Password: legacy.Password,
	}, nil
}

// normalizeName composes accents and upper-cases a legal name
func normalizeName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	// Casers are stateful and must not be shared between goroutines
	return cases.Upper(language.Spanish).String(norm.NFC.String(name))
}
