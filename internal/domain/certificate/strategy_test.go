package certificate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func validRecord(id string) Record {
	return Record{
		ID:        id,
		Filename:  id + ".pfx",
		ValidFrom: now.AddDate(0, -1, 0),
		ValidTo:   now.AddDate(1, 0, 0),
		Active:    true,
	}
}

func TestDetermineMigrationStrategy(t *testing.T) {
	tests := []struct {
		name         string
		hasLegacy    bool
		hasNew       bool
		preferHybrid bool
		want         MigrationStrategy
	}{
		{name: "nothing configured", want: StrategyNoCertificates},
		{name: "legacy only", hasLegacy: true, want: StrategyMigrateLegacy},
		{name: "registry only", hasNew: true, want: StrategyNewSystemOnly},
		{name: "both present prefers registry", hasLegacy: true, hasNew: true, want: StrategyPreferNewSystem},
		{name: "both present with hybrid flag", hasLegacy: true, hasNew: true, preferHybrid: true, want: StrategyHybrid},
		{name: "hybrid flag ignored without both", hasLegacy: true, preferHybrid: true, want: StrategyMigrateLegacy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetermineMigrationStrategy(tt.hasLegacy, tt.hasNew, tt.preferHybrid)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.True(t, StrategyMigrateLegacy.RequiresMigration())
	assert.False(t, StrategyPreferNewSystem.RequiresMigration())
}

func TestDeterminePresence(t *testing.T) {
	assert.Equal(t, PresenceNone, DeterminePresence(false, false))
	assert.Equal(t, PresenceLegacyOnly, DeterminePresence(true, false))
	assert.Equal(t, PresenceNewOnly, DeterminePresence(false, true))
	assert.Equal(t, PresenceBoth, DeterminePresence(true, true))
}

func TestResolveActive(t *testing.T) {
	legacy := LegacyConfig{Path: "/certs/empresa.pfx", Password: "secret", Active: true}

	t.Run("registry wins over active legacy", func(t *testing.T) {
		reg := Registry{Records: []Record{validRecord("c1")}, ActiveID: "c1"}
		got := ResolveActive(reg, legacy, now)

		assert.Equal(t, SourceRegistry, got.Source())
		r, ok := got.Record()
		require.True(t, ok)
		assert.Equal(t, "c1", r.ID)
		_, ok = got.Legacy()
		assert.False(t, ok)
	})

	t.Run("falls back to legacy when registry record expired", func(t *testing.T) {
		expired := validRecord("c1")
		expired.ValidTo = now.Add(-time.Hour)
		reg := Registry{Records: []Record{expired}, ActiveID: "c1"}

		got := ResolveActive(reg, legacy, now)
		assert.Equal(t, SourceLegacy, got.Source())
		l, ok := got.Legacy()
		require.True(t, ok)
		assert.Equal(t, "/certs/empresa.pfx", l.Path)
	})

	t.Run("inactive legacy resolves to none", func(t *testing.T) {
		got := ResolveActive(Registry{}, LegacyConfig{Path: "/certs/a.pfx"}, now)
		assert.True(t, got.IsNone())
	})

	t.Run("zero value is none", func(t *testing.T) {
		var a ActiveCertificate
		assert.True(t, a.IsNone())
		assert.Equal(t, SourceNone, a.Source())
	})
}

func TestRegistry_Active(t *testing.T) {
	t.Run("uses flagged record", func(t *testing.T) {
		a := validRecord("a")
		b := validRecord("b")
		b.ValidTo = now.AddDate(2, 0, 0)
		got, ok := Registry{Records: []Record{a, b}, ActiveID: "a"}.Active(now)
		require.True(t, ok)
		assert.Equal(t, "a", got.ID)
	})

	t.Run("without flag picks latest expiry", func(t *testing.T) {
		a := validRecord("a")
		b := validRecord("b")
		b.ValidTo = now.AddDate(2, 0, 0)
		got, ok := Registry{Records: []Record{a, b}}.Active(now)
		require.True(t, ok)
		assert.Equal(t, "b", got.ID)
	})

	t.Run("inactive records are ignored", func(t *testing.T) {
		a := validRecord("a")
		a.Active = false
		_, ok := Registry{Records: []Record{a}, ActiveID: "a"}.Active(now)
		assert.False(t, ok)
	})

	t.Run("not yet valid is not current", func(t *testing.T) {
		a := validRecord("a")
		a.ValidFrom = now.Add(time.Hour)
		assert.False(t, a.IsCurrent(now))
	})
}

func TestRecord_DaysUntilExpiry(t *testing.T) {
	r := Record{ValidFrom: now.AddDate(0, 0, -10), ValidTo: now.Add(36 * time.Hour)}
	assert.Equal(t, 2, r.DaysUntilExpiry(now))

	r.ValidTo = now.Add(-48 * time.Hour)
	assert.Equal(t, -2, r.DaysUntilExpiry(now))
}

func TestRegistry_Expiring(t *testing.T) {
	soon := validRecord("soon")
	soon.ValidTo = now.AddDate(0, 0, 10)
	later := validRecord("later")

	got := Registry{Records: []Record{soon, later}}.Expiring(now, 30)
	require.Len(t, got, 1)
	assert.Equal(t, "soon", got[0].ID)
}
