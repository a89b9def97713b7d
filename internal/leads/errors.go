package leads

import "errors"

var (
	// ErrInvalidPhone indicates the phone number is missing or not E.164.
	ErrInvalidPhone = errors.New("leads: phone must be E.164 format (+44...)")
)
