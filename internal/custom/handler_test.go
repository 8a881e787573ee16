package custom

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsim/internal/auth"
	"chatsim/pkg/models"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewHandler(NewRepo(newTestDB(t)))
	r := gin.New()
	g := r.Group("/users")
	g.Use(func(c *gin.Context) {
		c.Set(auth.CtxClaimsKey, &auth.Claims{PlayerID: "p1"})
		c.Next()
	})
	h.RegisterRoutes(g)
	return r
}

func send(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_CreateAndGet(t *testing.T) {
	r := newTestRouter(t)

	w := send(t, r, http.MethodPost, "/users/custom", gin.H{
		"names":  gin.H{" EN ": " Kay ", "ja": ""},
		"images": []string{" ", "https://img.example/kay.png"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Character
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.True(t, strings.HasPrefix(created.ID, IDPrefix))
	assert.Equal(t, models.KindCustom, created.Kind)
	assert.Equal(t, map[string]string{"en": "Kay"}, created.Names)
	assert.Equal(t, []string{"https://img.example/kay.png"}, created.Images)

	w = send(t, r, http.MethodGet, "/users/custom/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = send(t, r, http.MethodGet, "/users/custom", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = send(t, r, http.MethodGet, "/users/custom/custom-nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_CreateValidation(t *testing.T) {
	r := newTestRouter(t)

	w := send(t, r, http.MethodPost, "/users/custom", gin.H{"images": []string{"x.png"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(t, r, http.MethodPost, "/users/custom", gin.H{"names": gin.H{"en": "X"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
