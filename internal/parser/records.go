package parser

import (
	"iter"
	"strings"

	"github.com/insightdelivered/statement-categorizer/internal/models"
)

// Flatten joins page segments and collapses every whitespace run into a
// single space. Parse expects its input in this form.
func Flatten(segments []string) string {
	return collapseSpaces(strings.Join(segments, " "))
}

// Parse yields the date, descriptor and amount tokens of every record the
// profile pattern finds in flat text, in document order. Fragments that do
// not match are skipped. The sequence is lazy and can be ranged over more
// than once.
func Parse(flatText string, p *IssuerProfile) iter.Seq[models.RawTriple] {
	re := p.pattern()
	return func(yield func(models.RawTriple) bool) {
		pos := 0
		for pos < len(flatText) {
			loc := re.FindStringSubmatchIndex(flatText[pos:])
			if loc == nil {
				return
			}
			triple := models.RawTriple{
				Date:       group(flatText[pos:], loc, 1),
				Descriptor: group(flatText[pos:], loc, 2),
				Amount:     group(flatText[pos:], loc, 3),
			}
			if !yield(triple) {
				return
			}
			// guard against empty matches from custom patterns
			advance := loc[1]
			if advance == 0 {
				advance = 1
			}
			pos += advance
		}
	}
}

func group(s string, loc []int, n int) string {
	if loc[2*n] < 0 {
		return ""
	}
	return s[loc[2*n]:loc[2*n+1]]
}
