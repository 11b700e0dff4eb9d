// src/security/validation/field_validator.go
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var ErrValidationFailed = errors.New("validation failed")

const (
	DefaultMaxStringLength = 255
	MaxFileNameLength      = 200
	MaxSourceTextBytes     = 10 * 1024 * 1024
)

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

var summaryIDRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// ValidateSummaryID checks that id looks like a stored summary identifier.
func ValidateSummaryID(id string) error {
	if !summaryIDRegex.MatchString(id) {
		return fmt.Errorf("%w: summary id '%s' is not in the expected format", ErrValidationFailed, id)
	}
	return nil
}

// ValidateFormatHint accepts csv, json, auto or an empty value.
func ValidateFormatHint(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv", "json", "auto":
		return nil
	}
	return fmt.Errorf("%w: format '%s' must be one of csv, json, auto", ErrValidationFailed, s)
}

// ValidateSourceText checks an inline trade document sent as text.
func ValidateSourceText(text string) error {
	if err := ValidateStringNotEmpty(text, "text"); err != nil {
		return err
	}
	if len(text) > MaxSourceTextBytes {
		return fmt.Errorf("%w: text exceeds %d bytes", ErrValidationFailed, MaxSourceTextBytes)
	}
	if !utf8.ValidString(text) || strings.IndexByte(text, 0) != -1 {
		return fmt.Errorf("%w: text must be valid UTF-8 without null bytes", ErrValidationFailed)
	}
	return nil
}
