package leads

import (
	"errors"
	"testing"
)

func TestNormalize_FlatPayload(t *testing.T) {
	lead, err := Normalize(map[string]any{
		"name":        "Pat Smith",
		"phone":       "+44 7700 900123",
		"email":       "Pat@Example.com",
		"address":     "1 Test Street",
		"postal_code": "g1 1aa",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if lead.Name != "Pat Smith" {
		t.Errorf("expected name Pat Smith, got %s", lead.Name)
	}
	if lead.Phone != "+447700900123" {
		t.Errorf("expected normalized phone, got %s", lead.Phone)
	}
	if lead.Email != "pat@example.com" {
		t.Errorf("expected lowercased email, got %s", lead.Email)
	}
	if lead.Postcode != "G1 1AA" {
		t.Errorf("expected uppercased postcode, got %s", lead.Postcode)
	}
	if lead.Homeowner != HomeownerUnknown {
		t.Errorf("expected unknown homeowner, got %s", lead.Homeowner)
	}
}

func TestNormalize_NestedContact(t *testing.T) {
	lead, err := Normalize(map[string]any{
		"contact": map[string]any{
			"firstName":    "Jo",
			"phone_number": "+447700900456",
			"postal_code":  "G2 2BB",
		},
		"is_homeowner": true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if lead.Name != "Jo" {
		t.Errorf("expected name Jo, got %s", lead.Name)
	}
	if lead.Phone != "+447700900456" {
		t.Errorf("expected phone from nested contact, got %s", lead.Phone)
	}
	if lead.Homeowner != HomeownerYes {
		t.Errorf("expected homeowner yes, got %s", lead.Homeowner)
	}
}

func TestNormalize_FlatFieldsWinOverNested(t *testing.T) {
	lead, err := Normalize(map[string]any{
		"phone": "+447700900001",
		"contact": map[string]any{
			"phone": "+447700900002",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lead.Phone != "+447700900001" {
		t.Errorf("expected top-level phone to win, got %s", lead.Phone)
	}
}

func TestNormalize_MissingName(t *testing.T) {
	lead, err := Normalize(map[string]any{"phone": "+447700900123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lead.Name != "there" {
		t.Errorf(`expected fallback name "there", got %s`, lead.Name)
	}
}

func TestNormalize_RejectsNonE164(t *testing.T) {
	for _, phone := range []string{"", "07700 900123", "not a phone"} {
		_, err := Normalize(map[string]any{"phone": phone})
		if !errors.Is(err, ErrInvalidPhone) {
			t.Errorf("phone %q: expected ErrInvalidPhone, got %v", phone, err)
		}
	}
}

func TestNormalizeE164(t *testing.T) {
	if got := NormalizeE164("+44 (0)7700-900123"); got != "+4407700900123" {
		t.Errorf("unexpected normalization: %s", got)
	}
	if got := NormalizeE164("07700900123"); got != "07700900123" {
		t.Errorf("expected plus-less number left without country code, got %s", got)
	}
	if got := NormalizeE164("   "); got != "" {
		t.Errorf("expected empty result, got %s", got)
	}
}

func TestAddressLine(t *testing.T) {
	lead := &Lead{Address: "1 Test Street", Postcode: "G1 1AA"}
	if got := lead.AddressLine(); got != "1 Test Street, G1 1AA" {
		t.Errorf("unexpected address line: %s", got)
	}

	lead = &Lead{Postcode: "G1 1AA"}
	if got := lead.AddressLine(); got != "G1 1AA" {
		t.Errorf("unexpected address line: %s", got)
	}
}
