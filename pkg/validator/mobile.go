package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrEmptyPhone indicates the mobile number is empty
	ErrEmptyPhone = errors.New("mobile number cannot be empty")

	// ErrInvalidFormat indicates the mobile number contains invalid characters
	ErrInvalidFormat = errors.New("mobile number can only contain digits")

	// ErrInvalidLength indicates the national part is not 10 digits
	ErrInvalidLength = errors.New("mobile number must have 10 digits after the country code")
)

// digitsRegex matches digits only
var digitsRegex = regexp.MustCompile(`^\d+$`)

// nationalLength is the number of digits of a mobile number without the
// country code
const nationalLength = 10

// MobileValidator normalizes staff mobile numbers so they can be stored
// uniquely and handed to messaging gateways
type MobileValidator struct {
	countryCode string
}

// NewMobileValidator creates a validator that assumes countryCode for
// numbers entered without one
func NewMobileValidator(countryCode string) *MobileValidator {
	return &MobileValidator{countryCode: strings.TrimPrefix(strings.TrimSpace(countryCode), "+")}
}

// Sanitize removes separators commonly typed into phone fields
func (v *MobileValidator) Sanitize(phone string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "", "+", "")
	return replacer.Replace(strings.TrimSpace(phone))
}

// Validate checks a mobile number and returns its national form (10 digits).
// Accepts 9876543210, 09876543210, 919876543210 and +91 98765 43210.
func (v *MobileValidator) Validate(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.Sanitize(phone)
	if !digitsRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	switch {
	case len(sanitized) == nationalLength:
		return sanitized, nil
	case len(sanitized) == nationalLength+1 && strings.HasPrefix(sanitized, "0"):
		return sanitized[1:], nil
	case len(sanitized) == nationalLength+len(v.countryCode) && strings.HasPrefix(sanitized, v.countryCode):
		return sanitized[len(v.countryCode):], nil
	}

	return "", ErrInvalidLength
}

// Normalize returns the number in international digits-only form
// (country code followed by the national number), as expected by the
// WhatsApp and SMS gateways
func (v *MobileValidator) Normalize(phone string) (string, error) {
	national, err := v.Validate(phone)
	if err != nil {
		return "", err
	}
	return v.countryCode + national, nil
}

// Format formats a number for display: +CC XXXXX XXXXX
func (v *MobileValidator) Format(phone string) (string, error) {
	national, err := v.Validate(phone)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("+%s %s %s", v.countryCode, national[:5], national[5:]), nil
}

// IsValid is a convenience method that returns true if phone is valid
func (v *MobileValidator) IsValid(phone string) bool {
	_, err := v.Validate(phone)
	return err == nil
}
