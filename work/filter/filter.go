package filter

import (
	"github.com/grafana/regexp"

	"moontv/work/logger"
	"moontv/work/types"
)

// Filter prunes the catalog by channel name after parsing. Include
// keeps only matching names, Exclude then removes matches; either may
// be nil. Invalid patterns compile to nil and are skipped, so a bad
// config entry degrades to no filtering instead of an empty catalog.
type Filter struct {
	include *regexp.Regexp
	exclude *regexp.Regexp
}

// New compiles the configured patterns. Empty patterns are allowed and
// mean "no constraint".
func New(includePattern, excludePattern string) *Filter {
	f := &Filter{}
	f.include = compile("includePattern", includePattern)
	f.exclude = compile("excludePattern", excludePattern)
	return f
}

func compile(name, pattern string) *regexp.Regexp {
	if pattern == "" {
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		logger.Error("{filter - compile} invalid %s %q: %v", name, pattern, err)
		return nil
	}
	return re
}

// Empty reports whether the filter has no active patterns.
func (f *Filter) Empty() bool {
	return f.include == nil && f.exclude == nil
}

// Keep decides whether a channel name survives the filter.
func (f *Filter) Keep(name string) bool {
	if f.include != nil && !f.include.MatchString(name) {
		return false
	}
	if f.exclude != nil && f.exclude.MatchString(name) {
		return false
	}
	return true
}

// Apply prunes filtered channels from the categories in place and
// drops categories left empty. The input slice order is preserved.
func (f *Filter) Apply(categories []*types.Category) []*types.Category {
	if f.Empty() {
		return categories
	}

	out := categories[:0]
	removed := 0
	for _, cat := range categories {
		kept := cat.Channels[:0]
		for _, ch := range cat.Channels {
			if f.Keep(ch.Name) {
				kept = append(kept, ch)
			} else {
				removed++
			}
		}
		cat.Channels = kept
		if len(cat.Channels) > 0 {
			out = append(out, cat)
		}
	}

	if removed > 0 {
		logger.Info("{filter - Apply} removed %d channels", removed)
	}
	return out
}
