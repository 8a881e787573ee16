package custom

import "chatsim/pkg/models"

// Source is the data source that player-authored characters belong to.
// It has no filter groups, so every custom character passes its filter.
type Source struct {
	Title string
}

func NewSource() *Source {
	return &Source{Title: "Custom"}
}

func (s *Source) Key() string  { return SourceKey }
func (s *Source) Name() string { return s.Title }

func (s *Source) Label(key, _ string) string { return key }

func (s *Source) DefaultFilters() []models.FilterGroup { return nil }

func (s *Source) Match(ch models.Character, _ []models.FilterGroup) bool {
	return ch.IsCustom()
}
