package chat

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsim/pkg/database"
	"chatsim/pkg/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenMigrated(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func contents(items []models.ChatItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Content)
	}
	return out
}

func TestRepo_AppendAndInsert(t *testing.T) {
	ctx := context.Background()
	repo := NewRepo(newTestDB(t))

	_, next, err := repo.Add(ctx, "p1", models.ChatItem{Content: "one"}, -1)
	require.NoError(t, err)
	assert.Equal(t, -1, next)
	_, _, err = repo.Add(ctx, "p1", models.ChatItem{Content: "three"}, -1)
	require.NoError(t, err)

	item, next, err := repo.Add(ctx, "p1", models.ChatItem{Content: "two"}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, item.Position)
	assert.Equal(t, 2, next)
	assert.NotEmpty(t, item.ID)

	// past the end clamps to append
	_, next, err = repo.Add(ctx, "p1", models.ChatItem{Content: "four"}, 99)
	require.NoError(t, err)
	assert.Equal(t, 4, next)

	items, err := repo.List(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three", "four"}, contents(items))
	for i, it := range items {
		assert.Equal(t, i, it.Position)
	}

	other, err := repo.List(ctx, "p2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRepo_DeleteClosesGap(t *testing.T) {
	ctx := context.Background()
	repo := NewRepo(newTestDB(t))

	var ids []string
	for _, c := range []string{"a", "b", "c"} {
		it, _, err := repo.Add(ctx, "p1", models.ChatItem{Content: c}, -1)
		require.NoError(t, err)
		ids = append(ids, it.ID)
	}

	ok, err := repo.Delete(ctx, "p1", ids[1])
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Delete(ctx, "p1", ids[1])
	require.NoError(t, err)
	assert.False(t, ok)

	items, err := repo.List(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, contents(items))
	assert.Equal(t, 1, items[1].Position)
}

func TestRepo_ClearAuthorByCharacterID(t *testing.T) {
	ctx := context.Background()
	repo := NewRepo(newTestDB(t))

	add := func(content string, ref *models.CharRef) {
		_, _, err := repo.Add(ctx, "p1", models.ChatItem{Content: content, Char: ref}, -1)
		require.NoError(t, err)
	}
	add("player", nil)
	add("k1", &models.CharRef{CharID: "custom-k", Img: "1.png"})
	add("k2", &models.CharRef{CharID: "custom-k", Img: "2.png"})
	add("other", &models.CharRef{CharID: "a", Img: "1"})

	n, err := repo.ClearAuthor(ctx, "p1", "custom-k")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	items, err := repo.List(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Nil(t, items[0].Char)
	assert.Nil(t, items[1].Char)
	assert.Nil(t, items[2].Char)
	require.NotNil(t, items[3].Char)
	assert.Equal(t, "a", items[3].Char.CharID)
	assert.Equal(t, "k1", items[1].Content)
}
