package classifier

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// RuleEngine matches every keyword of a rule set in one pass over the
// lowercased descriptor.
type RuleEngine struct {
	matcher *ahocorasick.Matcher
	owner   []int // keyword index -> first category that lists it
	names   []string
}

// NewRuleEngine compiles the keywords of rs. A keyword listed under several
// categories belongs to the first of them.
func NewRuleEngine(rs RuleSet) *RuleEngine {
	e := &RuleEngine{names: make([]string, len(rs.Categories))}

	index := make(map[string]int)
	var patterns [][]byte
	for ci, c := range rs.Categories {
		e.names[ci] = c.Name
		for _, kw := range c.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if _, ok := index[kw]; ok {
				continue
			}
			index[kw] = len(patterns)
			patterns = append(patterns, []byte(kw))
			e.owner = append(e.owner, ci)
		}
	}

	if len(patterns) > 0 {
		e.matcher = ahocorasick.NewMatcher(patterns)
	}
	return e
}

// Match returns the earliest-listed category with a keyword in descriptor.
func (e *RuleEngine) Match(descriptor string) (string, bool) {
	if e.matcher == nil || descriptor == "" {
		return "", false
	}

	hits := e.matcher.MatchThreadSafe([]byte(strings.ToLower(descriptor)))
	best := -1
	for _, idx := range hits {
		if idx < 0 || idx >= len(e.owner) {
			continue
		}
		if ci := e.owner[idx]; best < 0 || ci < best {
			best = ci
		}
	}
	if best < 0 {
		return "", false
	}
	return e.names[best], true
}
