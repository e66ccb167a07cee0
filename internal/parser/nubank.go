package parser

import "github.com/insightdelivered/statement-categorizer/internal/models"

// NubankProfile describes Nubank credit card statements.
//
// Every page is whitespace-collapsed first; the transaction block runs from
// the "TRANSAÇÕES" heading up to the cardholder name in the page footer.
// Pages missing either marker contribute nothing.
//
//	Date format: DD MMM with Portuguese month abbreviations; the year comes
//	from the YYYY-MM stamp in the file name.
//	Example: "10 MAR STARBUCKS CAFE -12,90"
//
// Excluded terms match by substring and identical transactions are collapsed
// across the whole run, since consecutive statements repeat installments.
func NubankProfile() IssuerProfile {
	return IssuerProfile{
		Issuer:        models.IssuerNubank,
		Name:          "Nubank",
		DetectMarkers: []string{"Nubank", "Nu Pagamentos"},
		Anchors: AnchorPair{
			Start: "TRANSAÇÕES",
			End:   holderPlaceholder,
		},
		OnMissingAnchor: MissingAnchorSkip,
		PageWhitespace:  PageWhitespaceCollapse,
		Pattern:         `(\d{2}\s[A-Z]{3})\s(.+?)\s([-−]?\d+(?:\.\d{3})*,\d{2})`,
		DateMode:        DateDayMonthAbbrev,
		Decimal:         DecimalComma,
		ExcludedTerms: []string{
			"PAGTO ANTECIPADO PIX",
			"PAGTO. POR DEB EM C/C",
			"ENCARGOS DE MORA",
			"ENCARGOS DE MULTA",
			"MULTA CONTRATUAL",
		},
		ExclusionMode: ExcludeContains,
		Dedup:         DedupRun,
	}
}
