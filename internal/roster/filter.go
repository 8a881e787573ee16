package roster

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"chatsim/internal/source"
	"chatsim/pkg/models"
)

// Tokenize splits a search query on commas. Tokens are trimmed and
// lowercased; the empty query has no tokens. Empty tokens are kept and match
// every character.
func Tokenize(query string) []string {
	if query == "" {
		return nil
	}
	parts := strings.Split(query, ",")
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return parts
}

// FilterRoster returns the characters to display for query under the given
// source states, sorted by id with lang's collation. It does not modify chars.
func FilterRoster(chars []models.Character, query string, states []source.State, lang language.Tag) []models.Character {
	tokens := Tokenize(query)

	out := make([]models.Character, 0, len(chars))
	for _, ch := range chars {
		if !passesSource(ch, states) {
			continue
		}
		if !matchesAll(ch.AllSearch, tokens) {
			continue
		}
		out = append(out, ch)
	}

	SortByID(out, lang)
	return out
}

func passesSource(ch models.Character, states []source.State) bool {
	for _, st := range states {
		if st.Enabled && st.Key() == ch.SourceKey && st.Source.Match(ch, st.Filters) {
			return true
		}
	}
	return false
}

func matchesAll(search string, tokens []string) bool {
	for _, tok := range tokens {
		if !strings.Contains(search, tok) {
			return false
		}
	}
	return true
}

// SortByID orders characters by id. Ids the collator considers equal fall
// back to byte order so the result is total.
func SortByID(chars []models.Character, lang language.Tag) {
	col := collate.New(lang)
	sort.SliceStable(chars, func(i, j int) bool {
		if c := col.CompareString(chars[i].ID, chars[j].ID); c != 0 {
			return c < 0
		}
		return chars[i].ID < chars[j].ID
	})
}
