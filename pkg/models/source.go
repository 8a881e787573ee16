package models

// FilterToggle is one checkbox of a data source filter group. Characters
// carrying Tag are shown while the toggle is active.
type FilterToggle struct {
	Name   string `json:"name" yaml:"name"`
	Tag    string `json:"tag" yaml:"tag"`
	Active bool   `json:"active" yaml:"active"`
}

// FilterGroup is an ordered set of toggles shown under one heading.
type FilterGroup struct {
	GroupKey  string         `json:"group_key" yaml:"group_key"`
	GroupName string         `json:"group_name" yaml:"group_name"`
	Filters   []FilterToggle `json:"filters" yaml:"filters"`
}

// CloneFilters deep-copies filter groups so edits never alias a source's defaults.
func CloneFilters(groups []FilterGroup) []FilterGroup {
	if groups == nil {
		return nil
	}
	out := make([]FilterGroup, len(groups))
	for i, g := range groups {
		out[i] = g
		out[i].Filters = append([]FilterToggle(nil), g.Filters...)
	}
	return out
}
