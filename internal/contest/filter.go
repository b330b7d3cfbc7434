package contest

import (
	"fmt"
	"regexp"
)

// Fields a Rule can match its pattern against.
const (
	FieldAny   = ""
	FieldHref  = "href"
	FieldEvent = "event"
)

// Rule includes contests of one resource, optionally only those whose Field
// matches Pattern.
type Rule struct {
	Resource string
	Field    string
	Pattern  string
}

// DefaultRules is the platform allow-list. Order here is output order.
var DefaultRules = []Rule{
	{Resource: "atcoder.jp", Field: FieldHref, Pattern: `a(b|r|g)c`},
	{Resource: "codeforces.com", Field: FieldEvent, Pattern: `Round`},
	{Resource: "dmoj.ca"},
	{Resource: "leetcode.com"},
}

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// Filter selects contests by per-platform rules.
type Filter struct {
	rules []compiledRule
}

// NewFilter compiles rules. An empty slice falls back to DefaultRules.
func NewFilter(rules []Rule) (*Filter, error) {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	f := &Filter{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		if r.Resource == "" {
			return nil, fmt.Errorf("filter rule without resource")
		}
		cr := compiledRule{Rule: r}
		switch r.Field {
		case FieldAny:
			if r.Pattern != "" {
				return nil, fmt.Errorf("filter rule for %s: pattern requires a field", r.Resource)
			}
		case FieldHref, FieldEvent:
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("filter rule for %s: %w", r.Resource, err)
			}
			cr.re = re
		default:
			return nil, fmt.Errorf("filter rule for %s: unknown field %q", r.Resource, r.Field)
		}
		f.rules = append(f.rules, cr)
	}
	return f, nil
}

// Apply returns the contests matching any rule, grouped by rule in rule order.
// Within a group the input order is kept, so the result is not time-sorted.
func (f *Filter) Apply(contests []Contest) []Contest {
	var out []Contest
	for _, r := range f.rules {
		for _, c := range contests {
			if r.match(c) {
				out = append(out, c)
			}
		}
	}
	return out
}

// Match reports whether any rule includes c.
func (f *Filter) Match(c Contest) bool {
	for _, r := range f.rules {
		if r.match(c) {
			return true
		}
	}
	return false
}

func (r compiledRule) match(c Contest) bool {
	if c.Resource != r.Resource {
		return false
	}
	switch r.Field {
	case FieldHref:
		return r.re.MatchString(c.Href)
	case FieldEvent:
		return r.re.MatchString(c.Event)
	}
	return true
}
