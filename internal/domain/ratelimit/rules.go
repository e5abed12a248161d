package ratelimit

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Quota is a parsed "N/period" rate-limit string.
type Quota struct {
	Limit         int
	WindowSeconds int
}

// ParseQuota parses "N/period" with period in {second, minute, hour};
// any other period means per day.
func ParseQuota(s string) (Quota, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return Quota{}, fmt.Errorf("%w: %q", ErrInvalidQuota, s)
	}
	limit, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || limit <= 0 {
		return Quota{}, fmt.Errorf("%w: %q", ErrInvalidQuota, s)
	}

	var window int
	switch strings.TrimSpace(parts[1]) {
	case "second":
		window = 1
	case "minute":
		window = 60
	case "hour":
		window = 3600
	default:
		window = 86400
	}
	return Quota{Limit: limit, WindowSeconds: window}, nil
}

// rule pairs a compiled path matcher with its quota.
type rule struct {
	matcher *regexp.Regexp
	quota   Quota
}

// Rules is an ordered table of path matchers evaluated top-down, with a
// default quota for unmatched paths. The table is data-driven so operators
// can retune limits without code changes.
type Rules struct {
	rules []rule
	def   Quota
}

// RuleSpec declares one matcher row for NewRules.
type RuleSpec struct {
	Pattern string
	Quota   string
}

// NewRules compiles an ordered rule table. The first matching row wins.
func NewRules(specs []RuleSpec, defaultQuota string) (*Rules, error) {
	def, err := ParseQuota(defaultQuota)
	if err != nil {
		return nil, err
	}

	r := &Rules{def: def}
	for _, spec := range specs {
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, spec.Pattern, err)
		}
		q, err := ParseQuota(spec.Quota)
		if err != nil {
			return nil, err
		}
		r.rules = append(r.rules, rule{matcher: re, quota: q})
	}
	return r, nil
}

// Resolve returns the quota for a request path.
func (r *Rules) Resolve(path string) Quota {
	for _, rule := range r.rules {
		if rule.matcher.MatchString(path) {
			return rule.quota
		}
	}
	return r.def
}

// DefaultRules builds the standard table for the task API from the four
// configured quota strings.
func DefaultRules(tasks, batch, sessions, def string) (*Rules, error) {
	return NewRules([]RuleSpec{
		{Pattern: `^/v1/tasks/next`, Quota: tasks},
		{Pattern: `^/v1/tasks/batch`, Quota: batch},
		{Pattern: `^/v1/tasks/.+/submit`, Quota: tasks},
		{Pattern: `^/v1/users/sessions`, Quota: sessions},
	}, def)
}
