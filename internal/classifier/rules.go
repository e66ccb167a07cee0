package classifier

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultCatchAll is the category assigned when nothing else applies.
const DefaultCatchAll = "OTHERS"

// Category is one entry of the rule set. Keywords are matched as lowercase
// substrings of the descriptor.
type Category struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// RuleSet is the ordered category vocabulary. When keywords of several
// categories match, the category listed first wins.
type RuleSet struct {
	Categories []Category `json:"categories"`
	CatchAll   string     `json:"catchAll"`
}

// Validate checks that names are unique and non-empty and that every
// category carries at least one keyword.
func (rs RuleSet) Validate() error {
	if len(rs.Categories) == 0 {
		return errors.New("rule set has no categories")
	}
	if strings.TrimSpace(rs.CatchAll) == "" {
		return errors.New("rule set has no catch-all category")
	}

	seen := make(map[string]bool, len(rs.Categories)+1)
	seen[rs.CatchAll] = true
	for i, c := range rs.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return fmt.Errorf("category %d has no name", i)
		}
		if seen[name] {
			return fmt.Errorf("category %q is defined twice", name)
		}
		seen[name] = true

		n := 0
		for _, kw := range c.Keywords {
			if strings.TrimSpace(kw) != "" {
				n++
			}
		}
		if n == 0 {
			return fmt.Errorf("category %q has no keywords", name)
		}
	}
	return nil
}

// Names returns the full vocabulary in rule order, catch-all last.
func (rs RuleSet) Names() []string {
	names := make([]string, 0, len(rs.Categories)+1)
	for _, c := range rs.Categories {
		names = append(names, c.Name)
	}
	return append(names, rs.CatchAll)
}

// Contains reports whether name belongs to the vocabulary.
func (rs RuleSet) Contains(name string) bool {
	for _, n := range rs.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// DefaultRuleSet returns the built-in Brazilian card statement categories.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		CatchAll: DefaultCatchAll,
		Categories: []Category{
			{Name: "TRANSPORTE", Keywords: []string{"posto", "shell", "ipiranga", "uber", "taxi", "táxi", "metrô", "metro", "ônibus", "onibus", "bus", "brt", "99", "cabify"}},
			{Name: "EDUCACAO", Keywords: []string{"livraria", "cultura", "submarino", "amazon", "udemy", "coursera", "alura", "curso", "escola", "faculdade", "saraiva"}},
			{Name: "SAUDE", Keywords: []string{"hospital", "clinica", "laboratorio", "laboratório", "drogaria", "farmacia", "farmácia", "ortopedia", "dr. consulta", "drogasil"}},
			{Name: "LAZER", Keywords: []string{"cinema", "cine", "teatro", "parque", "show", "concert", "museu", "bar", "churrascaria", "bowling"}},
			{Name: "ALIMENTACAO", Keywords: []string{"mercado", "padaria", "restaurante", "restaurant", "burger", "lanchonete", "delivery", "food", "pizza", "barbecue", "cafe", "starbucks", "boteco"}},
			{Name: "SERVICOS", Keywords: []string{"netflix", "spotify", "streaming", "assinatura", "serviço", "servico", "subscription", "telefone", "internet", "energia", "água", "oi", "vivo", "claro", "sky"}},
			{Name: "MERCADO", Keywords: []string{"carrefour", "extra", "oxxo", "pao de açucar", "minuto", "assai", "atacadao", "atacadão", "makro"}},
			{Name: "VESTUARIO", Keywords: []string{"c&a", "riachuelo", "renner", "zara", "h&m", "forever 21", "marisa", "dafiti", "nike", "adidas", "puma", "under armour", "centauro", "track & field", "levi’s", "lacoste", "tommy hilfiger", "calvin klein", "guess", "farm", "osklen", "hering", "animale", "amaro", "richards"}},
		},
	}
}
