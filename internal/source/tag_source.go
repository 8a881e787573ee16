package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"chatsim/pkg/models"
)

// Definition describes a built-in data source. Characters come either from
// URL (a JSON array served over HTTP) or from File.
type Definition struct {
	Key       string                       `yaml:"key"`
	Name      string                       `yaml:"name"`
	URL       string                       `yaml:"url"`
	File      string                       `yaml:"file"`
	ImageBase string                       `yaml:"image_base"`
	Strings   map[string]map[string]string `yaml:"strings"`
	Filters   []models.FilterGroup         `yaml:"filters"`
}

// TagSource is a built-in source whose filters match on character tags.
type TagSource struct {
	Def    Definition
	Client *http.Client
}

func NewTagSource(def Definition) *TagSource {
	return &TagSource{
		Def: def,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *TagSource) Key() string  { return s.Def.Key }
func (s *TagSource) Name() string { return s.Def.Name }

func (s *TagSource) Label(key, lang string) string {
	if m, ok := s.Def.Strings[key]; ok {
		if v := strings.TrimSpace(m[lang]); v != "" {
			return v
		}
		if v := strings.TrimSpace(m[models.DefaultLang]); v != "" {
			return v
		}
	}
	return key
}

func (s *TagSource) DefaultFilters() []models.FilterGroup {
	return activateAll(s.Def.Filters)
}

func (s *TagSource) Match(ch models.Character, filters []models.FilterGroup) bool {
	return MatchTags(ch.Tags, filters)
}

// Record is the JSON shape a source serves:
//
//	[
//	  {
//	    "id": "hoshino",
//	    "names": {"en": "Takanashi Hoshino", "ja": "小鳥遊ホシノ"},
//	    "short_names": {"en": "Hoshino"},
//	    "tags": ["school:abydos"],
//	    "images": ["hoshino_1.png", "hoshino_2.png"],
//	    "search": ["oji-san"]
//	  }
//	]
type Record struct {
	ID         string            `json:"id"`
	Names      map[string]string `json:"names"`
	ShortNames map[string]string `json:"short_names,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
	Images     []string          `json:"images"`
	Search     []string          `json:"search,omitempty"`
}

// RecordOf converts a character back into its served form.
func RecordOf(ch models.Character, search ...string) Record {
	return Record{
		ID:         ch.ID,
		Names:      ch.Names,
		ShortNames: ch.ShortNames,
		Tags:       ch.Tags,
		Images:     ch.Images,
		Search:     search,
	}
}

// FetchAll loads and maps the source's characters.
func (s *TagSource) FetchAll(ctx context.Context) ([]models.Character, error) {
	var (
		body []byte
		err  error
	)
	switch {
	case s.Def.URL != "":
		body, err = s.fetchURL(ctx)
	case s.Def.File != "":
		body, err = os.ReadFile(s.Def.File)
		if err != nil {
			err = fmt.Errorf("%s: read %s: %w", s.Def.Key, s.Def.File, err)
		}
	default:
		return nil, fmt.Errorf("%s: neither url nor file configured", s.Def.Key)
	}
	if err != nil {
		return nil, err
	}

	var raw []Record
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%s: decode json: %w", s.Def.Key, err)
	}

	result := make([]models.Character, 0, len(raw))
	for _, r := range raw {
		id := strings.TrimSpace(r.ID)
		if id == "" || len(r.Images) == 0 {
			continue
		}
		ch := models.Character{
			ID:         id,
			Kind:       models.KindCatalog,
			SourceKey:  s.Def.Key,
			Names:      r.Names,
			ShortNames: r.ShortNames,
			Tags:       r.Tags,
			Images:     r.Images,
			ImageBase:  s.Def.ImageBase,
		}
		result = append(result, ch.WithSearch(r.Search...))
	}
	return result, nil
}

func (s *TagSource) fetchURL(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Def.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", s.Def.Key, err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: do request: %w", s.Def.Key, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", s.Def.Key, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d: %s", s.Def.Key, resp.StatusCode, string(body))
	}
	return body, nil
}
