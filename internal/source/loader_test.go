package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsim/pkg/models"
)

type stubFetcher struct {
	*TagSource
	chars []models.Character
	err   error
}

func (s stubFetcher) FetchAll(context.Context) ([]models.Character, error) {
	return s.chars, s.err
}

func stub(key string, err error, ids ...string) stubFetcher {
	f := stubFetcher{TagSource: NewTagSource(Definition{Key: key}), err: err}
	for _, id := range ids {
		f.chars = append(f.chars, models.Character{ID: id, SourceKey: key, Images: []string{"1"}})
	}
	return f
}

func ids(chars []models.Character) []string {
	out := make([]string, 0, len(chars))
	for _, c := range chars {
		out = append(out, c.ID)
	}
	return out
}

func TestLoader_FirstSourceWinsOnDuplicateID(t *testing.T) {
	l := NewLoader(stub("a", nil, "x", "y"), stub("b", nil, "y", "z"))

	chars, err := l.FetchAndMerge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, ids(chars))
	assert.Equal(t, "a", chars[1].SourceKey)
}

func TestLoader_PartialFailure(t *testing.T) {
	l := NewLoader(stub("a", errors.New("down")), stub("b", nil, "z"))

	chars, err := l.FetchAndMerge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"z"}, ids(chars))
}

func TestLoader_AllFailed(t *testing.T) {
	l := NewLoader(stub("a", errors.New("down")), stub("b", errors.New("also down")))

	_, err := l.FetchAndMerge(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "also down")
}

func TestLoader_LoadInto(t *testing.T) {
	cat := NewCatalog()
	n, err := NewLoader(stub("a", nil, "x", "y")).LoadInto(context.Background(), cat)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, cat.Len())
	assert.Equal(t, []string{"x", "y"}, ids(cat.All()))

	_, ok := cat.Get("y")
	assert.True(t, ok)
}

const sampleJSON = `[
  {"id": "hoshino", "names": {"en": "Takanashi Hoshino", "ja": "小鳥遊ホシノ"}, "tags": ["school:abydos"], "images": ["h1.png", "h2.png"], "search": ["Oji-san"]},
  {"id": "", "images": ["skip.png"]},
  {"id": "noimage", "images": []}
]`

func TestTagSource_FetchURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleJSON))
	}))
	defer srv.Close()

	src := NewTagSource(Definition{Key: "ba", URL: srv.URL, ImageBase: "https://img.example/"})
	chars, err := src.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, chars, 1)

	ch := chars[0]
	assert.Equal(t, "hoshino", ch.ID)
	assert.Equal(t, models.KindCatalog, ch.Kind)
	assert.Equal(t, "ba", ch.SourceKey)
	assert.Contains(t, ch.AllSearch, "oji-san")
	assert.Contains(t, ch.AllSearch, "小鳥遊ホシノ")
	assert.Equal(t, "https://img.example/h1.png", ch.ImageURL("h1.png"))
}

func TestTagSource_FetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewTagSource(Definition{Key: "ba", URL: srv.URL}).FetchAll(context.Background())
	require.Error(t, err)

	_, err = NewTagSource(Definition{Key: "ba"}).FetchAll(context.Background())
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	writeFile(t, path, "{not json")
	_, err = NewTagSource(Definition{Key: "ba", File: path}).FetchAll(context.Background())
	require.Error(t, err)
}

func TestTagSource_FetchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ba.json")
	writeFile(t, path, sampleJSON)

	chars, err := NewTagSource(Definition{Key: "ba", File: path}).FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"hoshino"}, ids(chars))
}

func TestRecordOf_ReloadsThroughFileSource(t *testing.T) {
	orig := models.Character{
		ID:     "aru",
		Names:  map[string]string{"en": "Rikuhachima Aru"},
		Tags:   []string{"school:gehenna"},
		Images: []string{"aru.png"},
	}
	b, err := json.Marshal([]Record{RecordOf(orig, "president")})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "mirror.json")
	writeFile(t, path, string(b))

	chars, err := NewTagSource(Definition{Key: "mirror", File: path}).FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, chars, 1)
	assert.Equal(t, "aru", chars[0].ID)
	assert.Equal(t, "mirror", chars[0].SourceKey)
	assert.Equal(t, orig.Tags, chars[0].Tags)
	assert.Contains(t, chars[0].AllSearch, "president")
}
