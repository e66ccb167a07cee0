package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/insightdelivered/statement-categorizer/internal/models"
)

// ErrUnknownIssuer is returned when an issuer name or statement cannot be mapped to a profile.
var ErrUnknownIssuer = errors.New("unknown issuer")

// Issuers lists the supported statement layouts in detection order.
func Issuers() []models.IssuerType {
	return []models.IssuerType{models.IssuerBradesco, models.IssuerNubank}
}

// Builtin returns the built-in profile for the given issuer.
func Builtin(issuer models.IssuerType) (IssuerProfile, error) {
	switch issuer {
	case models.IssuerBradesco:
		return BradescoProfile(), nil
	case models.IssuerNubank:
		return NubankProfile(), nil
	default:
		return IssuerProfile{}, fmt.Errorf("%w: %q", ErrUnknownIssuer, issuer)
	}
}

// ParseIssuer maps a user-supplied name to an issuer. An empty name or "auto"
// yields an empty issuer, meaning the caller should auto-detect.
func ParseIssuer(name string) (models.IssuerType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return "", nil
	case "bradesco", "brad":
		return models.IssuerBradesco, nil
	case "nubank", "nu", "nubk":
		return models.IssuerNubank, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: bradesco, nubank)", ErrUnknownIssuer, name)
	}
}

// AutoDetect tries to identify the issuer from the statement text.
func AutoDetect(pages []string) (models.IssuerType, error) {
	combined := strings.ToLower(strings.Join(pages, "\n"))

	for _, issuer := range Issuers() {
		profile, _ := Builtin(issuer)
		if containsAny(combined, profile.DetectMarkers) {
			return issuer, nil
		}
	}

	return "", fmt.Errorf("%w: could not detect issuer from statement content; please specify --issuer", ErrUnknownIssuer)
}

func containsAny(lowerText string, needles []string) bool {
	for _, needle := range needles {
		if needle != "" && strings.Contains(lowerText, strings.ToLower(needle)) {
			return true
		}
	}
	return false
}
