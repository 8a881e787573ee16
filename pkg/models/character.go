package models

import (
	"strings"
)

// CharacterKind tells catalog characters (loaded from a built-in data source)
// apart from characters authored by a player.
type CharacterKind string

const (
	KindCatalog CharacterKind = "catalog"
	KindCustom  CharacterKind = "custom"
)

// DefaultLang is used when a requested locale has no name.
const DefaultLang = "en"

// Character is an immutable roster entry.
type Character struct {
	ID         string            `json:"id"`
	Kind       CharacterKind     `json:"kind"`
	SourceKey  string            `json:"source_key"`
	Names      map[string]string `json:"names"`
	ShortNames map[string]string `json:"short_names,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
	Images     []string          `json:"images"`
	ImageBase  string            `json:"image_base,omitempty"`
	AllSearch  string            `json:"-"`
}

func (c Character) IsCustom() bool {
	return c.Kind == KindCustom
}

// Name returns the display name for lang, falling back to English and then the id.
func (c Character) Name(lang string) string {
	return pickName(c.Names, lang, c.ID)
}

// ShortName falls back to the full name when no short form exists.
func (c Character) ShortName(lang string) string {
	if v := pickName(c.ShortNames, lang, ""); v != "" {
		return v
	}
	return c.Name(lang)
}

// ImageURL resolves an image variant to a fetchable URL.
func (c Character) ImageURL(img string) string {
	if img == "" {
		return ""
	}
	if c.ImageBase == "" || strings.Contains(img, "://") || strings.HasPrefix(img, "data:") {
		return img
	}
	return strings.TrimRight(c.ImageBase, "/") + "/" + strings.TrimLeft(img, "/")
}

// HasImage reports whether img is one of the character's variants.
func (c Character) HasImage(img string) bool {
	for _, v := range c.Images {
		if v == img {
			return true
		}
	}
	return false
}

// WithSearch returns a copy of c with AllSearch computed from its id, names,
// short names, tags and any extra terms.
func (c Character) WithSearch(extra ...string) Character {
	parts := make([]string, 0, 1+len(c.Names)+len(c.ShortNames)+len(c.Tags)+len(extra))
	parts = append(parts, c.ID)
	for _, v := range c.Names {
		parts = append(parts, v)
	}
	for _, v := range c.ShortNames {
		parts = append(parts, v)
	}
	parts = append(parts, c.Tags...)
	parts = append(parts, extra...)
	c.AllSearch = strings.ToLower(strings.Join(parts, "\n"))
	return c
}

func pickName(m map[string]string, lang, fallback string) string {
	if m == nil {
		return fallback
	}
	if v := strings.TrimSpace(m[lang]); v != "" {
		return v
	}
	if v := strings.TrimSpace(m[DefaultLang]); v != "" {
		return v
	}
	return fallback
}
