package source

import (
	"context"
	"strings"

	"chatsim/pkg/models"
)

// Source is a named provider of characters with its own filter predicate.
// Each character belongs to exactly one source.
type Source interface {
	Key() string
	Name() string
	// Label localizes a group or filter name declared by the source.
	Label(key, lang string) string
	// DefaultFilters returns a fresh copy of the source's filter groups with
	// every toggle active.
	DefaultFilters() []models.FilterGroup
	Match(ch models.Character, filters []models.FilterGroup) bool
}

// Fetcher is implemented by sources whose characters are loaded at startup
// rather than authored at runtime.
type Fetcher interface {
	Source
	FetchAll(ctx context.Context) ([]models.Character, error)
}

// MatchTags applies tag filter groups to a character's tags. Within a group a
// character passes when one of its tags belongs to an active toggle, or when
// no toggle of the group covers any of its tags. Every group must pass.
func MatchTags(tags []string, groups []models.FilterGroup) bool {
	for _, g := range groups {
		covered := false
		allowed := false
		for _, f := range g.Filters {
			if !hasTag(tags, f.Tag) {
				continue
			}
			covered = true
			if f.Active {
				allowed = true
				break
			}
		}
		if covered && !allowed {
			return false
		}
	}
	return true
}

func hasTag(tags []string, tag string) bool {
	if tag == "" {
		return false
	}
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func activateAll(groups []models.FilterGroup) []models.FilterGroup {
	out := models.CloneFilters(groups)
	for gi := range out {
		for fi := range out[gi].Filters {
			out[gi].Filters[fi].Active = true
		}
	}
	return out
}
