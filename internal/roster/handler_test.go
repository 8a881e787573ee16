package roster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"chatsim/internal/auth"
	"chatsim/internal/custom"
	"chatsim/internal/source"
	"chatsim/pkg/database"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := database.OpenMigrated(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cat := source.NewCatalog()
	cat.Replace(testChars)

	reg, err := source.NewRegistry(
		source.NewTagSource(source.Definition{Key: "ba"}),
		custom.NewSource(),
	)
	require.NoError(t, err)

	customRepo := custom.NewRepo(db)
	require.NoError(t, customRepo.Create(context.Background(), custom.Character{
		OwnerID: "p1",
		ID:      custom.IDPrefix + "mine",
		Names:   map[string]string{"en": "Sensei", "ja": "先生"},
		Images:  []string{"https://img.example/sensei.png"},
	}))

	return NewService(cat, customRepo, source.NewStateRepo(db), reg)
}

func newTestRouter(t *testing.T, playerID string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewHandler(newTestService(t), "en")
	r := gin.New()
	g := r.Group("/users")
	g.Use(func(c *gin.Context) {
		c.Set(auth.CtxClaimsKey, &auth.Claims{PlayerID: playerID})
		c.Next()
	})
	h.RegisterRoutes(g)
	return r
}

type listBody struct {
	Total int             `json:"total"`
	Items []CharacterView `json:"items"`
}

func get(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestService_CustomCharactersArePerPlayer(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	mine, err := svc.Search(ctx, "p1", "", language.English)
	require.NoError(t, err)
	assert.Contains(t, ids(mine), "custom-mine")

	theirs, err := svc.Search(ctx, "p2", "", language.English)
	require.NoError(t, err)
	assert.NotContains(t, ids(theirs), "custom-mine")
	assert.Len(t, theirs, 4)

	_, ok, err := svc.Lookup(ctx, "p2", "custom-mine")
	require.NoError(t, err)
	assert.False(t, ok)

	ch, ok, err := svc.Lookup(ctx, "p1", "hina")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ba", ch.SourceKey)
}

func TestHandler_List(t *testing.T) {
	r := newTestRouter(t, "p1")

	w := get(t, r, "/users/characters?q=sensei")
	require.Equal(t, http.StatusOK, w.Code)

	var body listBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Total)
	assert.Equal(t, "custom-mine", body.Items[0].ID)
	assert.Equal(t, "Sensei", body.Items[0].Name)

	w = get(t, r, "/users/characters?q=sensei&lang=ja")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "先生", body.Items[0].Name)

	w = get(t, r, "/users/characters")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 5, body.Total)
}

func TestHandler_GetByID(t *testing.T) {
	r := newTestRouter(t, "p1")

	w := get(t, r, "/users/characters/hina")
	require.Equal(t, http.StatusOK, w.Code)
	var v CharacterView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Equal(t, "hina", v.ID)
	require.Len(t, v.Images, 1)
	assert.Equal(t, "hina.png", v.Images[0].URL)

	w = get(t, r, "/users/characters/nobody")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
