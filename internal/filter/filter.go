// Package filter provides include filtering for schedule sessions.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cpuguy83/fahrplan/internal/config"
	"github.com/cpuguy83/fahrplan/internal/schedule"
)

// MatchType specifies how a filter rule matches.
type MatchType int

const (
	MatchContains MatchType = iota // Substring match (default)
	MatchExact                     // Exact string match
	MatchPrefix                    // Starts with
	MatchSuffix                    // Ends with
	MatchRegex                     // Regular expression
)

// Filter applies include rules to sessions.
type Filter struct {
	mode  string // "or" or "and"
	rules []rule
}

type rule struct {
	field           string
	matchType       MatchType
	pattern         string         // For non-regex matches
	regex           *regexp.Regexp // For regex matches
	caseInsensitive bool
}

func knownField(field string) bool {
	switch field {
	case "title", "summary",
		"subtitle",
		"speaker", "speakers",
		"room", "location",
		"track",
		"language", "lang",
		"source", "calendar",
		"abstract", "description":
		return true
	}
	return false
}

// New creates a new filter from configuration.
func New(cfg config.FilterConfig) (*Filter, error) {
	f := &Filter{
		mode: cfg.Mode,
	}

	if f.mode == "" {
		f.mode = "or"
	}

	for i, r := range cfg.Rules {
		compiled, err := compileRule(r)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		f.rules = append(f.rules, compiled)
	}

	return f, nil
}

// compileRule converts a config FilterRule to an internal rule.
func compileRule(r config.FilterRule) (rule, error) {
	compiled := rule{
		field:           strings.ToLower(r.Field),
		caseInsensitive: r.CaseInsensitive,
	}
	if !knownField(compiled.field) {
		return compiled, fmt.Errorf("unknown field %q", r.Field)
	}

	if r.Regex != "" {
		compiled.matchType = MatchRegex
		pattern := r.Regex
		if r.CaseInsensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return compiled, fmt.Errorf("invalid regex %q: %w", r.Regex, err)
		}
		compiled.regex = re
		return compiled, nil
	}

	switch {
	case r.Exact != "":
		compiled.matchType, compiled.pattern = MatchExact, r.Exact
	case r.Prefix != "":
		compiled.matchType, compiled.pattern = MatchPrefix, r.Prefix
	case r.Suffix != "":
		compiled.matchType, compiled.pattern = MatchSuffix, r.Suffix
	case r.Contains != "":
		compiled.matchType, compiled.pattern = MatchContains, r.Contains
	default:
		return compiled, fmt.Errorf("no match pattern specified (use contains, exact, prefix, suffix, or regex)")
	}
	if r.CaseInsensitive {
		compiled.pattern = strings.ToLower(compiled.pattern)
	}
	return compiled, nil
}

// Apply filters sessions, returning only those that match the include rules.
// If no rules are defined, all sessions are returned.
func (f *Filter) Apply(sessions []schedule.Session) []schedule.Session {
	// No rules = pass everything through
	if f == nil || len(f.rules) == 0 {
		return sessions
	}

	var filtered []schedule.Session
	for _, s := range sessions {
		if f.matches(&s) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// Len returns the number of rules.
func (f *Filter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.rules)
}

// matches checks if a session matches the filter rules.
func (f *Filter) matches(s *schedule.Session) bool {
	if f.mode == "and" {
		// All rules must match
		for _, r := range f.rules {
			if !r.matches(s) {
				return false
			}
		}
		return true
	}

	// OR mode: any rule must match
	for _, r := range f.rules {
		if r.matches(s) {
			return true
		}
	}
	return false
}

// matches checks if a session matches a single rule.
// Multi-valued fields match when any of their values matches.
func (r *rule) matches(s *schedule.Session) bool {
	for _, value := range r.fieldValues(s) {
		if r.matchValue(value) {
			return true
		}
	}
	return false
}

func (r *rule) matchValue(value string) bool {
	// Apply case insensitivity for non-regex matches
	if r.caseInsensitive && r.matchType != MatchRegex {
		value = strings.ToLower(value)
	}

	switch r.matchType {
	case MatchRegex:
		return r.regex.MatchString(value)
	case MatchExact:
		return value == r.pattern
	case MatchPrefix:
		return strings.HasPrefix(value, r.pattern)
	case MatchSuffix:
		return strings.HasSuffix(value, r.pattern)
	case MatchContains:
		fallthrough
	default:
		return strings.Contains(value, r.pattern)
	}
}

// fieldValues extracts the field values from a session.
func (r *rule) fieldValues(s *schedule.Session) []string {
	switch r.field {
	case "title", "summary":
		return []string{s.Title}
	case "subtitle":
		return []string{s.Subtitle}
	case "speaker", "speakers":
		if len(s.Speakers) == 0 {
			return []string{""}
		}
		return s.Speakers
	case "room", "location":
		return []string{s.Room}
	case "track":
		return []string{s.Track}
	case "language", "lang":
		return []string{s.Lang}
	case "source", "calendar":
		return []string{s.Source}
	case "abstract", "description":
		return []string{s.Abstract}
	default:
		return []string{""}
	}
}
