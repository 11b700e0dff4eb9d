package validation

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/logger"
)

// AllowedClientContentTypes lists the client-declared MIME types accepted for
// trade uploads. Browsers often send octet-stream or nothing for .csv/.json,
// so those are let through and left to the content check.
var AllowedClientContentTypes = map[string]bool{
	"":                         true,
	"text/csv":                 true,
	"text/plain":               true,
	"text/json":                true,
	"application/csv":          true,
	"application/json":         true,
	"application/vnd.ms-excel": true,
	"application/octet-stream": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": false,
}

var allowedDetectedTypes = map[string]bool{
	"text/plain":       true,
	"text/csv":         true,
	"application/csv":  true,
	"application/json": true,
}

const sniffLen = 1024

// ValidateClientContentType checks the Content-Type header provided by the client.
func ValidateClientContentType(contentType string) error {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if allowed, exists := AllowedClientContentTypes[mediaType]; !exists || !allowed {
		logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("%w: client-declared file type '%s' is not allowed for trade upload", ErrValidationFailed, contentType)
	}
	return nil
}

// isBinaryContent reports null bytes or invalid UTF-8. A multi-byte rune cut
// off at the end of the sniffed window is not counted as invalid.
func isBinaryContent(buf []byte, truncated bool) bool {
	if bytes.IndexByte(buf, 0) != -1 {
		return true
	}
	if truncated {
		for i := 0; i < utf8.UTFMax && len(buf) > 0; i++ {
			if utf8.Valid(buf) {
				return false
			}
			buf = buf[:len(buf)-1]
		}
	}
	return !utf8.Valid(buf)
}

// ValidateTextContent sniffs the start of an upload and makes sure it is text.
// The reader is rewound before returning.
func ValidateTextContent(file io.ReadSeeker) (string, error) {
	if file == nil {
		return "", fmt.Errorf("%w: file is nil", ErrValidationFailed)
	}

	buffer := make([]byte, sniffLen)
	n, err := io.ReadFull(file, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}
	if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", seekErr)
	}
	if n == 0 {
		return "", fmt.Errorf("%w: file is empty", ErrValidationFailed)
	}

	return ValidateTextBytes(buffer[:n], n == sniffLen)
}

// ValidateTextBytes applies the text checks to an in-memory prefix.
func ValidateTextBytes(buf []byte, truncated bool) (string, error) {
	if isBinaryContent(buf, truncated) {
		logger.L.Warn("File rejected: binary content detected in text upload")
		return "application/octet-stream", fmt.Errorf("%w: file appears to be binary, not CSV or JSON text", ErrValidationFailed)
	}

	detected := http.DetectContentType(buf)
	detected = strings.ToLower(strings.Split(detected, ";")[0])
	if !allowedDetectedTypes[detected] {
		logger.L.Warn("Disallowed detected file content type", "detectedContentType", detected)
		return detected, fmt.Errorf("%w: detected file content type '%s' is not allowed", ErrValidationFailed, detected)
	}

	logger.L.Debug("File content type validated", "detectedContentType", detected)
	return detected, nil
}

// ValidateFileName checks a user-supplied file name and returns the cleaned
// base name to store it under.
func ValidateFileName(name string) (string, error) {
	cleaned := SanitizePlainText(StripUnprintable(strings.TrimSpace(name)))
	base := strings.TrimSpace(path.Base(strings.ReplaceAll(cleaned, "\\", "/")))

	if err := ValidateStringNotEmpty(base, "file name"); err != nil {
		return "", err
	}
	if base == "." || base == ".." || base == "/" {
		return "", fmt.Errorf("%w: file name '%s' is not allowed", ErrValidationFailed, name)
	}
	if err := ValidateStringMaxLength(base, MaxFileNameLength, "file name"); err != nil {
		return "", err
	}
	if err := CheckXSSPatterns(base, "file name", name); err != nil {
		return "", err
	}
	return base, nil
}
