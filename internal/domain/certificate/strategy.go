package certificate

import "time"

// Presence describes which certificate representations a company has
type Presence string

const (
	PresenceNone       Presence = "no_certificates"
	PresenceLegacyOnly Presence = "legacy_only"
	PresenceNewOnly    Presence = "new_system_only"
	PresenceBoth       Presence = "both_present"
)

// DeterminePresence maps presence flags to a Presence state
func DeterminePresence(hasLegacy, hasNew bool) Presence {
	switch {
	case hasLegacy && hasNew:
		return PresenceBoth
	case hasLegacy:
		return PresenceLegacyOnly
	case hasNew:
		return PresenceNewOnly
	default:
		return PresenceNone
	}
}

// MigrationStrategy is the action the bridge should take for a company
type MigrationStrategy string

const (
	StrategyNoCertificates  MigrationStrategy = "no_certificates"
	StrategyMigrateLegacy   MigrationStrategy = "migrate_legacy"
	StrategyNewSystemOnly   MigrationStrategy = "new_system_only"
	StrategyPreferNewSystem MigrationStrategy = "prefer_new_validate_legacy"
	StrategyHybrid          MigrationStrategy = "hybrid"
)

// RequiresMigration returns true if legacy data must be copied into the registry
func (s MigrationStrategy) RequiresMigration() bool {
	return s == StrategyMigrateLegacy
}

// DetermineMigrationStrategy picks the strategy from presence flags alone.
// When both representations exist the registry wins, unless preferHybrid
// asks for both to coexist.
func DetermineMigrationStrategy(hasLegacy, hasNew, preferHybrid bool) MigrationStrategy {
	switch DeterminePresence(hasLegacy, hasNew) {
	case PresenceLegacyOnly:
		return StrategyMigrateLegacy
	case PresenceNewOnly:
		return StrategyNewSystemOnly
	case PresenceBoth:
		if preferHybrid {
			return StrategyHybrid
		}
		return StrategyPreferNewSystem
	default:
		return StrategyNoCertificates
	}
}

// Source tells where the active certificate comes from
type Source string

const (
	SourceNone     Source = "none"
	SourceRegistry Source = "registry"
	SourceLegacy   Source = "legacy"
)

// ActiveCertificate is the tagged result of resolving the active certificate.
// Exactly one of the registry record or the legacy config is meaningful,
// selected by Source.
type ActiveCertificate struct {
	source Source
	record Record
	legacy LegacyConfig
}

// FromRegistry wraps a registry record
func FromRegistry(r Record) ActiveCertificate {
	return ActiveCertificate{source: SourceRegistry, record: r}
}

// FromLegacy wraps a legacy config
func FromLegacy(l LegacyConfig) ActiveCertificate {
	return ActiveCertificate{source: SourceLegacy, legacy: l}
}

// None is the absence of an active certificate
func None() ActiveCertificate {
	return ActiveCertificate{source: SourceNone}
}

// Source returns the variant tag
func (a ActiveCertificate) Source() Source {
	if a.source == "" {
		return SourceNone
	}
	return a.source
}

// IsNone returns true if no certificate is active
func (a ActiveCertificate) IsNone() bool {
	return a.Source() == SourceNone
}

// Record returns the registry record when the variant is FromRegistry
func (a ActiveCertificate) Record() (Record, bool) {
	return a.record, a.source == SourceRegistry
}

// Legacy returns the legacy config when the variant is FromLegacy
func (a ActiveCertificate) Legacy() (LegacyConfig, bool) {
	return a.legacy, a.source == SourceLegacy
}

// ResolveActive returns the active certificate with a fixed priority: a usable
// registry record, then an active legacy config, then none.
func ResolveActive(registry Registry, legacy LegacyConfig, now time.Time) ActiveCertificate {
	if r, ok := registry.Active(now); ok {
		return FromRegistry(r)
	}
	if legacy.IsActive() {
		return FromLegacy(legacy)
	}
	return None()
}
