package leads

import "strings"

// HomeownerFlag is a tri-state answer to "does the lead own the property".
type HomeownerFlag string

const (
	HomeownerYes     HomeownerFlag = "yes"
	HomeownerNo      HomeownerFlag = "no"
	HomeownerUnknown HomeownerFlag = "unknown"
)

// Lead is the canonical shape for a prospect record. The CRM sends leads in
// many inconsistent payload shapes; Normalize maps them all onto this struct
// at the inbound boundary so everything downstream stays strictly typed.
type Lead struct {
	Name         string        `json:"name"`
	Phone        string        `json:"phone"`
	Email        string        `json:"email,omitempty"`
	Address      string        `json:"address,omitempty"`
	Postcode     string        `json:"postcode,omitempty"`
	PropertyType string        `json:"property_type,omitempty"`
	Homeowner    HomeownerFlag `json:"homeowner,omitempty"`
}

// HasAddress reports whether the lead arrived with any address information,
// which decides whether the call confirms it or asks for a postcode.
func (l *Lead) HasAddress() bool {
	return strings.TrimSpace(l.Address) != "" || strings.TrimSpace(l.Postcode) != ""
}

// AddressLine returns the address as spoken to the caller for confirmation.
func (l *Lead) AddressLine() string {
	addr := strings.TrimSpace(l.Address)
	pc := strings.TrimSpace(l.Postcode)
	switch {
	case addr != "" && pc != "":
		return addr + ", " + pc
	case addr != "":
		return addr
	default:
		return pc
	}
}

// Validate checks the fields required before a call can be placed.
func (l *Lead) Validate() error {
	if !strings.HasPrefix(l.Phone, "+") {
		return ErrInvalidPhone
	}
	return nil
}
