package parser

import "github.com/insightdelivered/statement-categorizer/internal/models"

// BradescoProfile describes Bradesco credit card statements.
//
// The cover page lists transactions between the cardholder name and the
// expense summary; continuation pages list them between the exchange-rate
// header and the cardholder's running total.
//
//	Date format: DD/MM (no year, the run year is assumed)
//	Example: "15/03 UBER TRIP 23,50"
//
// A page without its anchors is kept whole. Excluded terms must match the
// descriptor exactly and transactions are never deduplicated.
func BradescoProfile() IssuerProfile {
	return IssuerProfile{
		Issuer:        models.IssuerBradesco,
		Name:          "Bradesco",
		DetectMarkers: []string{"Bradesco", "bradescocartoes"},
		FirstPage: &AnchorPair{
			Start: holderPlaceholder,
			End:   "Resumo das Despesas",
		},
		Anchors: AnchorPair{
			Start: "Dólar R$",
			End:   "Total para " + holderPlaceholder,
		},
		OnMissingAnchor: MissingAnchorInclude,
		PageWhitespace:  PageWhitespaceKeep,
		Pattern:         `(\d{2}/\d{2}) (.+?) ([-−]?\d+(?:\.\d{3})*,\d{2})`,
		DateMode:        DateDayMonth,
		Decimal:         DecimalComma,
		ExcludedTerms: []string{
			"PAGTO ANTECIPADO PIX",
			"PAGTO. POR DEB EM C/C",
			"ENCARGOS DE MORA",
			"ENCARGOS DE MULTA",
			"MULTA CONTRATUAL",
			"ENCARGOS DE ATRASO",
		},
		ExclusionMode: ExcludeExact,
		Dedup:         DedupNone,
	}
}
