package classifier

import (
	"fmt"
	"regexp"
	"strings"
)

// BuildPrompt renders the fallback request: the vocabulary, the keyword
// hints per category and the descriptor, asking for one upper-case category.
func BuildPrompt(rs RuleSet, descriptor string) string {
	var b strings.Builder
	b.WriteString("Você é um classificador de transações baseado em regras.\n")
	b.WriteString("Para cada descrição abaixo, responda EXATAMENTE com uma única categoria em MAIÚSCULAS.\n\n")
	fmt.Fprintf(&b, "Opções: %s\n\n", strings.Join(rs.Names(), ", "))
	b.WriteString("Regras de categoria (palavras-chave):\n")
	for _, c := range rs.Categories {
		fmt.Fprintf(&b, "%s: %s\n", c.Name, strings.Join(c.Keywords, ", "))
	}
	fmt.Fprintf(&b, "\nTransação: %q\n", descriptor)
	b.WriteString("Resposta:")
	return b.String()
}

// responseMatcher finds the first whole-word category name in a response.
type responseMatcher struct {
	re *regexp.Regexp
}

func newResponseMatcher(rs RuleSet) *responseMatcher {
	names := rs.Names()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = regexp.QuoteMeta(n)
	}
	return &responseMatcher{re: regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b`)}
}

// Parse returns the first legal category token in response.
func (m *responseMatcher) Parse(response string) (string, bool) {
	match := m.re.FindStringSubmatch(response)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// ParseResponse returns the first category of rs named as a whole word in response.
func ParseResponse(rs RuleSet, response string) (string, bool) {
	return newResponseMatcher(rs).Parse(response)
}
