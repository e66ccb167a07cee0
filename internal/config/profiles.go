package config

import (
	"fmt"

	"dario.cat/mergo"
	"github.com/ghodss/yaml"

	"github.com/insightdelivered/statement-categorizer/internal/classifier"
	"github.com/insightdelivered/statement-categorizer/internal/models"
	"github.com/insightdelivered/statement-categorizer/internal/parser"
)

// Profile returns the resolved issuer profile: the built-in one, with the
// matching entry of PROFILE_FILE merged over it, and the holder name filled in.
//
// PROFILE_FILE is keyed by issuer:
//
//	nubank:
//	  excludedTerms: ["PAGTO ANTECIPADO PIX", "IOF"]
//	  anchors:
//	    end: "Página"
func (c *Config) Profile(issuer models.IssuerType) (*parser.IssuerProfile, error) {
	base, err := parser.Builtin(issuer)
	if err != nil {
		return nil, err
	}

	if c.ProfileFile != "" {
		raw, err := readFile(c.ProfileFile)
		if err != nil {
			return nil, err
		}
		overrides := map[string]parser.IssuerProfile{}
		if err := yaml.Unmarshal(raw, &overrides); err != nil {
			return nil, fmt.Errorf("parse %s: %w", c.ProfileFile, err)
		}
		if override, ok := overrides[string(issuer)]; ok {
			override.Issuer = issuer
			if err := mergo.Merge(&base, override, mergo.WithOverride); err != nil {
				return nil, fmt.Errorf("merge %s profile: %w", issuer, err)
			}
		}
	}

	return base.Resolve(c.HolderName)
}

// Rules returns the category rule set from RULES_FILE, or the built-in one.
func (c *Config) Rules() (classifier.RuleSet, error) {
	if c.RulesFile == "" {
		return classifier.DefaultRuleSet(), nil
	}

	raw, err := readFile(c.RulesFile)
	if err != nil {
		return classifier.RuleSet{}, err
	}
	var rs classifier.RuleSet
	if err := yaml.Unmarshal(raw, &rs); err != nil {
		return classifier.RuleSet{}, fmt.Errorf("parse %s: %w", c.RulesFile, err)
	}
	if rs.CatchAll == "" {
		rs.CatchAll = classifier.DefaultCatchAll
	}
	if err := rs.Validate(); err != nil {
		return classifier.RuleSet{}, fmt.Errorf("%s: %w", c.RulesFile, err)
	}
	return rs, nil
}
