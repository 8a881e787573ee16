package auth

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsim/pkg/database"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenMigrated(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var testTokens = TokenService{Secret: []byte("test-secret"), Issuer: "chatsim-test", Duration: time.Hour}

func newTestRouter(t *testing.T) (*gin.Engine, *Repo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := NewRepo(newTestDB(t))
	r := gin.New()
	NewHandler(repo, testTokens).RegisterRoutes(r.Group("/auth"))

	protected := r.Group("/users")
	protected.Use(AuthMiddleware(testTokens, repo))
	protected.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": PlayerID(c)})
	})
	return r, repo
}

func call(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type tokenBody struct {
	Token  string `json:"token"`
	Player struct {
		ID string `json:"id"`
	} `json:"player"`
}

func decodeToken(t *testing.T, w *httptest.ResponseRecorder) tokenBody {
	t.Helper()
	var b tokenBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	require.NotEmpty(t, b.Token)
	return b
}

func TestRegisterLoginAndRevoke(t *testing.T) {
	r, _ := newTestRouter(t)

	w := call(t, r, http.MethodPost, "/auth/register", "", gin.H{
		"username": "sensei", "email": "Sensei@Example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	reg := decodeToken(t, w)

	w = call(t, r, http.MethodGet, "/users/me", reg.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), reg.Player.ID)

	w = call(t, r, http.MethodPost, "/auth/login", "", gin.H{"email": "sensei@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(t, r, http.MethodPost, "/auth/login", "", gin.H{"email": "sensei@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	login := decodeToken(t, w)

	w = call(t, r, http.MethodPost, "/auth/logout", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// logout bumps the token version, so both earlier tokens stop working
	w = call(t, r, http.MethodGet, "/users/me", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = call(t, r, http.MethodGet, "/users/me", reg.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		name string
		body gin.H
		want int
	}{
		{name: "short username", body: gin.H{"username": "ab", "email": "a@b.c", "password": "password123"}, want: http.StatusBadRequest},
		{name: "bad email", body: gin.H{"username": "abc", "email": "nope", "password": "password123"}, want: http.StatusBadRequest},
		{name: "short password", body: gin.H{"username": "abc", "email": "a@b.c", "password": "short"}, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(t, r, http.MethodPost, "/auth/register", "", tt.body)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	body := gin.H{"username": "abc", "email": "a@b.c", "password": "password123"}
	require.Equal(t, http.StatusCreated, call(t, r, http.MethodPost, "/auth/register", "", body).Code)
	assert.Equal(t, http.StatusConflict, call(t, r, http.MethodPost, "/auth/register", "", body).Code)
}

func TestChangePassword(t *testing.T) {
	r, _ := newTestRouter(t)

	w := call(t, r, http.MethodPost, "/auth/register", "", gin.H{
		"username": "sensei", "email": "s@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	tok := decodeToken(t, w).Token

	w = call(t, r, http.MethodPost, "/auth/change-password", tok, gin.H{"old_password": "wrong-one", "new_password": "newpassword1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(t, r, http.MethodPost, "/auth/change-password", tok, gin.H{"old_password": "password123", "new_password": "newpassword1"})
	require.Equal(t, http.StatusOK, w.Code)

	w = call(t, r, http.MethodPost, "/auth/login", "", gin.H{"email": "s@example.com", "password": "newpassword1"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddleware_QueryToken(t *testing.T) {
	r, repo := newTestRouter(t)

	p := Player{ID: "p-1", Username: "kay", Email: "k@example.com", PasswordHash: "x"}
	require.NoError(t, repo.CreatePlayer(context.Background(), p))
	tok, _, err := testTokens.Sign(&p)
	require.NoError(t, err)

	w := call(t, r, http.MethodGet, "/users/me?token="+tok, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = call(t, r, http.MethodGet, "/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	other := TokenService{Secret: []byte("other"), Issuer: testTokens.Issuer, Duration: time.Hour}
	bad, _, err := other.Sign(&p)
	require.NoError(t, err)
	w = call(t, r, http.MethodGet, "/users/me", bad, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifier_PlayerID(t *testing.T) {
	_, repo := newTestRouter(t)
	p := Player{ID: "p-2", Username: "ren", Email: "r@example.com", PasswordHash: "x"}
	require.NoError(t, repo.CreatePlayer(context.Background(), p))
	tok, _, err := testTokens.Sign(&p)
	require.NoError(t, err)

	v := Verifier{Tokens: testTokens, Repo: repo}
	id, err := v.PlayerID(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "p-2", id)

	require.NoError(t, repo.BumpTokenVersion(context.Background(), "p-2"))
	_, err = v.PlayerID(context.Background(), tok)
	assert.Error(t, err)
}
