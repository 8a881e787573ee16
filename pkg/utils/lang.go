package utils

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

// SupportedLangs lists the locales character names are authored in.
var SupportedLangs = []language.Tag{
	language.English,
	language.Japanese,
	language.Chinese,
	language.Korean,
}

var langMatcher = language.NewMatcher(SupportedLangs)

// RequestLang picks the display locale for r: the "lang" query parameter
// first, then Accept-Language, then def. The result is a base language code
// such as "en" or "ja".
func RequestLang(r *http.Request, def string) string {
	if v := strings.TrimSpace(r.URL.Query().Get("lang")); v != "" {
		if tag, err := language.Parse(v); err == nil {
			return matchBase(tag)
		}
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			_, idx, conf := langMatcher.Match(tags...)
			if conf != language.No {
				base, _ := SupportedLangs[idx].Base()
				return base.String()
			}
		}
	}
	return def
}

func matchBase(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}
