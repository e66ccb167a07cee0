package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/insightdelivered/statement-categorizer/internal/models"
)

// holderPlaceholder is replaced by the configured cardholder name when a profile is resolved.
const holderPlaceholder = "{holder}"

// DateMode selects how a date token is turned into a calendar date.
type DateMode string

const (
	// DateDayMonth reads "DD/MM" and takes the year from the run clock.
	DateDayMonth DateMode = "day_month"
	// DateDayMonthAbbrev reads "DD MMM" (Portuguese abbreviation) and takes
	// the year from the document's filename context.
	DateDayMonthAbbrev DateMode = "day_month_abbrev"
)

// DecimalConvention describes the separators used in amount tokens.
type DecimalConvention string

const (
	DecimalComma DecimalConvention = "comma" // 1.234,56
	DecimalPoint DecimalConvention = "point" // 1,234.56
)

// ExclusionMode selects how excluded terms are compared with descriptors.
type ExclusionMode string

const (
	ExcludeExact    ExclusionMode = "exact"
	ExcludeContains ExclusionMode = "contains"
)

// MissingAnchorPolicy decides what a page contributes when an anchor is absent.
type MissingAnchorPolicy string

const (
	MissingAnchorInclude MissingAnchorPolicy = "include"
	MissingAnchorSkip    MissingAnchorPolicy = "skip"
)

// PageWhitespace decides whether page text is collapsed before anchors are searched.
type PageWhitespace string

const (
	PageWhitespaceKeep     PageWhitespace = "keep"
	PageWhitespaceCollapse PageWhitespace = "collapse"
)

// DedupScope decides whether identical transactions are collapsed.
type DedupScope string

const (
	DedupRun  DedupScope = "run"
	DedupNone DedupScope = "none"
)

// AnchorPair bounds the transaction block inside a page.
type AnchorPair struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// IssuerProfile captures one statement layout. Fields are strings or slices so
// that a partial YAML override can be merged over a built-in profile.
type IssuerProfile struct {
	Issuer        models.IssuerType `json:"issuer"`
	Name          string            `json:"name"`
	DetectMarkers []string          `json:"detectMarkers"`

	// FirstPage, when set, replaces Anchors on page index 0.
	FirstPage       *AnchorPair         `json:"firstPage,omitempty"`
	Anchors         AnchorPair          `json:"anchors"`
	OnMissingAnchor MissingAnchorPolicy `json:"onMissingAnchor"`
	PageWhitespace  PageWhitespace      `json:"pageWhitespace"`

	Pattern       string            `json:"pattern"`
	DateMode      DateMode          `json:"dateMode"`
	Decimal       DecimalConvention `json:"decimal"`
	ExcludedTerms []string          `json:"excludedTerms"`
	ExclusionMode ExclusionMode     `json:"exclusionMode"`
	Dedup         DedupScope        `json:"dedup"`

	re *regexp.Regexp
}

// Resolve returns a ready-to-use copy of the profile: the holder name is
// substituted into the anchors and the record pattern is compiled.
// An anchor that needs a holder name when none is given becomes absent.
func (p IssuerProfile) Resolve(holder string) (*IssuerProfile, error) {
	holder = strings.TrimSpace(holder)
	out := p
	out.Anchors = resolveAnchors(p.Anchors, holder)
	if p.FirstPage != nil {
		fp := resolveAnchors(*p.FirstPage, holder)
		out.FirstPage = &fp
	}
	out.DetectMarkers = append([]string(nil), p.DetectMarkers...)
	out.ExcludedTerms = append([]string(nil), p.ExcludedTerms...)

	re, err := regexp.Compile(p.Pattern)
	if err != nil {
		return nil, fmt.Errorf("profile %s: compile pattern: %w", p.Issuer, err)
	}
	if re.NumSubexp() != 3 {
		return nil, fmt.Errorf("profile %s: pattern must capture date, descriptor and amount, got %d groups", p.Issuer, re.NumSubexp())
	}
	out.re = re

	if err := out.validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *IssuerProfile) validate() error {
	switch p.DateMode {
	case DateDayMonth, DateDayMonthAbbrev:
	default:
		return fmt.Errorf("profile %s: unknown date mode %q", p.Issuer, p.DateMode)
	}
	switch p.Decimal {
	case DecimalComma, DecimalPoint:
	default:
		return fmt.Errorf("profile %s: unknown decimal convention %q", p.Issuer, p.Decimal)
	}
	switch p.ExclusionMode {
	case ExcludeExact, ExcludeContains:
	default:
		return fmt.Errorf("profile %s: unknown exclusion mode %q", p.Issuer, p.ExclusionMode)
	}
	switch p.OnMissingAnchor {
	case MissingAnchorInclude, MissingAnchorSkip:
	default:
		return fmt.Errorf("profile %s: unknown missing-anchor policy %q", p.Issuer, p.OnMissingAnchor)
	}
	switch p.PageWhitespace {
	case PageWhitespaceKeep, PageWhitespaceCollapse:
	default:
		return fmt.Errorf("profile %s: unknown page whitespace mode %q", p.Issuer, p.PageWhitespace)
	}
	switch p.Dedup {
	case DedupRun, DedupNone:
	default:
		return fmt.Errorf("profile %s: unknown dedup scope %q", p.Issuer, p.Dedup)
	}
	return nil
}

// NeedsHolder reports whether any anchor references the cardholder name.
func (p IssuerProfile) NeedsHolder() bool {
	if strings.Contains(p.Anchors.Start, holderPlaceholder) || strings.Contains(p.Anchors.End, holderPlaceholder) {
		return true
	}
	return p.FirstPage != nil &&
		(strings.Contains(p.FirstPage.Start, holderPlaceholder) || strings.Contains(p.FirstPage.End, holderPlaceholder))
}

func (p *IssuerProfile) anchorsFor(pageIndex int) AnchorPair {
	if pageIndex == 0 && p.FirstPage != nil {
		return *p.FirstPage
	}
	return p.Anchors
}

func (p *IssuerProfile) collapse() bool {
	return p.PageWhitespace == PageWhitespaceCollapse
}

// pattern returns the compiled record pattern, compiling lazily for profiles
// that were built by hand rather than through Resolve.
func (p *IssuerProfile) pattern() *regexp.Regexp {
	if p.re == nil {
		p.re = regexp.MustCompile(p.Pattern)
	}
	return p.re
}

func resolveAnchors(a AnchorPair, holder string) AnchorPair {
	return AnchorPair{
		Start: resolveAnchor(a.Start, holder),
		End:   resolveAnchor(a.End, holder),
	}
}

func resolveAnchor(anchor, holder string) string {
	if !strings.Contains(anchor, holderPlaceholder) {
		return anchor
	}
	if holder == "" {
		return ""
	}
	return strings.ReplaceAll(anchor, holderPlaceholder, holder)
}
