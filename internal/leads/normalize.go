package leads

import (
	"strconv"
	"strings"
)

// Normalize maps an inbound CRM payload onto the canonical Lead. The CRM is
// not consistent about field names — the same attribute arrives under several
// spellings, sometimes nested under a "contact" object — so this is the one
// place in the codebase that knows about all of them.
func Normalize(payload map[string]any) (*Lead, error) {
	contact, _ := payload["contact"].(map[string]any)

	lead := &Lead{
		Name: firstString(
			pick(payload, "name", "full_name", "fullName", "Name"),
			pick(contact, "name", "firstName", "first_name"),
		),
		Phone: NormalizeE164(firstString(
			pick(payload, "phone", "Phone", "phone_number", "phoneNumber", "mobile"),
			pick(contact, "phone", "phoneNumber", "phone_number", "mobile"),
		)),
		Email: strings.ToLower(firstString(
			pick(payload, "email", "Email"),
			pick(contact, "email"),
		)),
		Address: firstString(
			pick(payload, "address", "address1", "full_address", "street_address"),
			pick(contact, "address", "address1"),
		),
		Postcode: strings.ToUpper(firstString(
			pick(payload, "postcode", "postal_code", "postalCode", "zip", "zip_code"),
			pick(contact, "postcode", "postal_code"),
		)),
		PropertyType: firstString(
			pick(payload, "property_type", "propertyType"),
			pick(contact, "property_type"),
		),
		Homeowner: parseHomeowner(
			pickRaw(payload, "homeowner", "home_owner", "is_homeowner"),
			pickRaw(contact, "homeowner", "is_homeowner"),
		),
	}

	if lead.Name == "" {
		lead.Name = "there"
	}

	if err := lead.Validate(); err != nil {
		return nil, err
	}
	return lead, nil
}

// pick returns the first non-empty string value among the named keys.
func pick(m map[string]any, keys ...string) string {
	if m == nil {
		return ""
	}
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s := asString(v); strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// pickRaw returns the first present value among the named keys, untyped.
func pickRaw(m map[string]any, keys ...string) any {
	if m == nil {
		return nil
	}
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func parseHomeowner(values ...any) HomeownerFlag {
	for _, v := range values {
		switch t := v.(type) {
		case bool:
			if t {
				return HomeownerYes
			}
			return HomeownerNo
		case string:
			switch strings.ToLower(strings.TrimSpace(t)) {
			case "yes", "true", "y", "owner", "homeowner":
				return HomeownerYes
			case "no", "false", "n", "tenant", "renting":
				return HomeownerNo
			}
		}
	}
	return HomeownerUnknown
}
