// Package validation inspects uploaded bytes against their declared MIME
// type. It is stateless and side-effect free: callers decide what to do
// with a verdict.
package validation

import (
	"bytes"
	"errors"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	MimePDF  = "application/pdf"
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
)

const (
	ReasonEmptyPayload      = "file is empty or inaccessible"
	ReasonPasswordProtected = "PDF document is password-protected"
	ReasonUnreadablePDF     = "PDF document is unreadable"
	ReasonUnreadableImage   = "image file is unreadable"
)

// FailureError is a structural-validation verdict. It is data, not a crash:
// the caller records it on the document and reports it to the client.
type FailureError struct {
	Reason string
}

func (e *FailureError) Error() string {
	return e.Reason
}

// SupportedMimeType reports whether the declared MIME type is one the engine
// knows how to validate.
func SupportedMimeType(mimeType string) bool {
	switch normalizeMime(mimeType) {
	case MimePDF, MimePNG, MimeJPEG:
		return true
	default:
		return false
	}
}

// Validate checks the payload structurally against the declared MIME type.
// It returns nil for valid content and a *FailureError otherwise.
func Validate(payload []byte, declaredMimeType string) error {
	if len(payload) == 0 {
		return &FailureError{Reason: ReasonEmptyPayload}
	}

	switch normalizeMime(declaredMimeType) {
	case MimePDF:
		return validatePDF(payload)
	case MimePNG:
		return validatePNG(payload)
	case MimeJPEG:
		return validateJPEG(payload)
	default:
		return &FailureError{Reason: "unsupported file type: " + declaredMimeType}
	}
}

// validatePDF parses the document's cross-reference structure. The pdf
// package panics on some malformed inputs, so the parse is fenced with a
// recover and a panic counts as an unreadable document.
func validatePDF(payload []byte) (verdict error) {
	defer func() {
		if r := recover(); r != nil {
			verdict = &FailureError{Reason: ReasonUnreadablePDF}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return &FailureError{Reason: ReasonPasswordProtected}
		}
		return &FailureError{Reason: ReasonUnreadablePDF}
	}

	// An owner-password-only PDF opens with the empty user password but is
	// still encrypted; the trailer's Encrypt entry gives it away.
	if reader.Trailer().Key("Encrypt").Kind() != pdf.Null {
		return &FailureError{Reason: ReasonPasswordProtected}
	}
	if reader.NumPage() < 1 {
		return &FailureError{Reason: ReasonUnreadablePDF}
	}
	return nil
}

func validatePNG(payload []byte) error {
	if _, err := png.DecodeConfig(bytes.NewReader(payload)); err != nil {
		return &FailureError{Reason: ReasonUnreadableImage}
	}
	return nil
}

func validateJPEG(payload []byte) error {
	if _, err := jpeg.DecodeConfig(bytes.NewReader(payload)); err != nil {
		return &FailureError{Reason: ReasonUnreadableImage}
	}
	return nil
}

func normalizeMime(mimeType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
}
