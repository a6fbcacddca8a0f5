package certificate

import (
	"encoding/json"
	"path"
	"strings"
)

// LegacyConfig is the single-certificate configuration stored on the company
type LegacyConfig struct {
	Path     string
	Password string
	Active   bool
}

// HasData returns true if a certificate file was ever configured
func (l LegacyConfig) HasData() bool {
	return strings.TrimSpace(l.Path) != ""
}

// IsActive returns true if the legacy certificate is configured and enabled
func (l LegacyConfig) IsActive() bool {
	return l.HasData() && l.Active
}

// Filename returns the file name part of the legacy path
func (l LegacyConfig) Filename() string {
	p := strings.TrimSpace(strings.ReplaceAll(l.Path, `\`, "/"))
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// MarshalJSON renders the config with the password redacted
func (l LegacyConfig) MarshalJSON() ([]byte, error) {
	pw := ""
	if l.Password != "" {
		pw = "********"
	}
	return json.Marshal(struct {
		Path     string `json:"certificado_digital_path"`
		Password string `json:"certificado_digital_password,omitempty"`
		Active   bool   `json:"certificado_digital_activo"`
	}{l.Path, pw, l.Active})
}

// String renders the config without the password
func (l LegacyConfig) String() string {
	state := "inactive"
	if l.Active {
		state = "active"
	}
	return "legacy certificate " + l.Filename() + " (" + state + ")"
}

// Company is the identity of a company together with its legacy certificate fields
type Company struct {
	ID        string
	RUC       string
	LegalName string
	Legacy    LegacyConfig
}
