package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsim/pkg/models"
)

type fakePersister struct {
	saves []Roster
	err   error
}

func (f *fakePersister) SaveRoster(_ context.Context, _ string, r Roster) error {
	f.saves = append(f.saves, r)
	return f.err
}

type fakeCatalog struct {
	removed []string
	err     error
}

func (f *fakeCatalog) RemoveCharacter(_ context.Context, _ string, id string) error {
	f.removed = append(f.removed, id)
	return f.err
}

type fakeHistory struct {
	cleared []string
}

func (f *fakeHistory) ClearAuthor(_ context.Context, _ string, charID string) (int64, error) {
	f.cleared = append(f.cleared, charID)
	return 1, nil
}

func catalogChar(id, img string) models.ChatChar {
	return models.NewChatChar(models.Character{
		ID:        id,
		Kind:      models.KindCatalog,
		SourceKey: "tags",
		Images:    []string{img},
	}, img)
}

func customChar(id, img string) models.ChatChar {
	return models.NewChatChar(models.Character{
		ID:        id,
		Kind:      models.KindCustom,
		SourceKey: "custom",
		Images:    []string{img},
	}, img)
}

func keys(chars []models.ChatChar) []string {
	out := make([]string, 0, len(chars))
	for _, c := range chars {
		out = append(out, c.Character.ID+"/"+c.Img)
	}
	return out
}

func currentID(s *Store) string {
	cur := s.Snapshot().Current
	if cur == nil {
		return ""
	}
	return cur.Character.ID
}

func newTestStore(t *testing.T, chars ...models.ChatChar) (*Store, *fakePersister) {
	t.Helper()
	p := &fakePersister{}
	s := NewStore("p1", Deps{Persister: p}, Roster{})
	for _, c := range chars {
		_, err := s.Add(context.Background(), c)
		require.NoError(t, err)
	}
	p.saves = nil
	return s, p
}

func TestAdd_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, p := newTestStore(t)
	x := catalogChar("x", "1")

	added, err := s.Add(ctx, x)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Add(ctx, x)
	require.NoError(t, err)
	assert.False(t, added)

	snap := s.Snapshot()
	assert.Equal(t, []string{"x/1"}, keys(snap.Active))
	assert.Equal(t, "x", currentID(s))
	assert.Len(t, p.saves, 1)
}

func TestAdd_SameCharacterDifferentImage(t *testing.T) {
	s, _ := newTestStore(t, catalogChar("x", "1"), catalogChar("x", "2"))

	snap := s.Snapshot()
	assert.Equal(t, []string{"x/1", "x/2"}, keys(snap.Active))
	require.NotNil(t, snap.Current)
	assert.Equal(t, "2", snap.Current.Img)
}

func TestRemove_CurrentMovesToPredecessor(t *testing.T) {
	ctx := context.Background()
	a, b, c := catalogChar("a", "1"), catalogChar("b", "1"), catalogChar("c", "1")
	s, p := newTestStore(t, a, b, c)
	require.NoError(t, s.Select(ctx, &b))

	res, err := s.Remove(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, RemoveDone, res)

	assert.Equal(t, []string{"a/1", "c/1"}, keys(s.Snapshot().Active))
	assert.Equal(t, "a", currentID(s))
	assert.NotEmpty(t, p.saves)
}

func TestRemove_FirstCurrentFallsBackToPlayer(t *testing.T) {
	ctx := context.Background()
	a, b, c := catalogChar("a", "1"), catalogChar("b", "1"), catalogChar("c", "1")
	s, _ := newTestStore(t, a, b, c)
	require.NoError(t, s.Select(ctx, &a))

	_, err := s.Remove(ctx, a)
	require.NoError(t, err)

	assert.Equal(t, []string{"b/1", "c/1"}, keys(s.Snapshot().Active))
	assert.Nil(t, s.Snapshot().Current)
}

func TestRemove_NonCurrentKeepsCurrent(t *testing.T) {
	ctx := context.Background()
	a, b, c := catalogChar("a", "1"), catalogChar("b", "1"), catalogChar("c", "1")
	s, _ := newTestStore(t, a, b, c)
	require.NoError(t, s.Select(ctx, &a))

	_, err := s.Remove(ctx, b)
	require.NoError(t, err)

	assert.Equal(t, []string{"a/1", "c/1"}, keys(s.Snapshot().Active))
	assert.Equal(t, "a", currentID(s))
}

func TestRemove_MatchesByIdentityKey(t *testing.T) {
	ctx := context.Background()
	x1, x2 := catalogChar("x", "1"), catalogChar("x", "2")
	s, _ := newTestStore(t, x1, x2)
	require.NoError(t, s.Select(ctx, &x1))

	_, err := s.Remove(ctx, x2)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, []string{"x/1"}, keys(snap.Active))
	require.NotNil(t, snap.Current)
	assert.Equal(t, "1", snap.Current.Img)
}

func TestRemove_UnknownKeyIsNoop(t *testing.T) {
	ctx := context.Background()
	s, p := newTestStore(t, catalogChar("a", "1"))

	res, err := s.Remove(ctx, catalogChar("zzz", "1"))
	require.NoError(t, err)
	assert.Equal(t, RemoveNoop, res)
	assert.Equal(t, []string{"a/1"}, keys(s.Snapshot().Active))
	assert.Empty(t, p.saves)
}

func TestRemove_UnknownCurrentKeyIsNoop(t *testing.T) {
	ctx := context.Background()
	a, x := catalogChar("a", "1"), catalogChar("x", "1")
	s, p := newTestStore(t, a)
	require.NoError(t, s.Select(ctx, &x))
	p.saves = nil

	res, err := s.Remove(ctx, x)
	require.NoError(t, err)
	assert.Equal(t, RemoveNoop, res)
	assert.Equal(t, "x", currentID(s))
	assert.Equal(t, []string{"a/1"}, keys(s.Snapshot().Active))
	assert.Empty(t, p.saves)
}

func TestRemove_CustomGoesPending(t *testing.T) {
	ctx := context.Background()
	a, k := catalogChar("a", "1"), customChar("custom-k", "k.png")
	s, p := newTestStore(t, a, k)

	res, err := s.Remove(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, RemovePending, res)

	snap := s.Snapshot()
	assert.Equal(t, []string{"a/1", "custom-k/k.png"}, keys(snap.Active))
	require.NotNil(t, snap.Pending)
	assert.Equal(t, "custom-k", snap.Pending.ID)
	assert.Empty(t, p.saves)
}

func TestCancel_ClearsPending(t *testing.T) {
	ctx := context.Background()
	k := customChar("custom-k", "k.png")
	s, _ := newTestStore(t, k)

	_, err := s.Remove(ctx, k)
	require.NoError(t, err)

	assert.True(t, s.Cancel())
	assert.False(t, s.Cancel())
	assert.Nil(t, s.Snapshot().Pending)
	assert.Equal(t, []string{"custom-k/k.png"}, keys(s.Snapshot().Active))
}

func TestRemoveFromRow_RemovesEveryVariantByCharacterID(t *testing.T) {
	ctx := context.Background()
	a := catalogChar("a", "1")
	k1, k2 := customChar("custom-k", "1.png"), customChar("custom-k", "2.png")
	s, p := newTestStore(t, a, k1, k2)

	// current is k2; it matches the removed id even though k1 is the entry
	// whose image was chosen for removal
	_, err := s.Remove(ctx, k1)
	require.NoError(t, err)

	removed, err := s.RemoveFromRow(ctx)
	require.NoError(t, err)
	assert.True(t, removed)

	snap := s.Snapshot()
	assert.Equal(t, []string{"a/1"}, keys(snap.Active))
	assert.Equal(t, "a", currentID(s))
	assert.Nil(t, snap.Pending)
	assert.Len(t, p.saves, 1)
}

func TestRemoveFromRow_WithoutPendingIsNoop(t *testing.T) {
	s, p := newTestStore(t, catalogChar("a", "1"))

	removed, err := s.RemoveFromRow(context.Background())
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Empty(t, p.saves)
}

func TestDeleteFromCatalog_CallsCollaborators(t *testing.T) {
	ctx := context.Background()
	p, cat, hist := &fakePersister{}, &fakeCatalog{}, &fakeHistory{}
	s := NewStore("p1", Deps{Persister: p, Catalog: cat, History: hist}, Roster{})

	k := customChar("custom-k", "k.png")
	_, err := s.Add(ctx, k)
	require.NoError(t, err)
	_, err = s.Remove(ctx, k)
	require.NoError(t, err)

	deleted, err := s.DeleteFromCatalog(ctx)
	require.NoError(t, err)
	assert.True(t, deleted)

	assert.Equal(t, []string{"custom-k"}, cat.removed)
	assert.Equal(t, []string{"custom-k"}, hist.cleared)
	snap := s.Snapshot()
	assert.Empty(t, snap.Active)
	assert.Nil(t, snap.Current)
	assert.Nil(t, snap.Pending)
}

func TestDeleteFromCatalog_CatalogErrorStillUpdatesRow(t *testing.T) {
	ctx := context.Background()
	cat := &fakeCatalog{err: errors.New("boom")}
	s := NewStore("p1", Deps{Catalog: cat}, Roster{})

	a, k := catalogChar("a", "1"), customChar("custom-k", "k.png")
	_, err := s.Add(ctx, a)
	require.NoError(t, err)
	_, err = s.Add(ctx, k)
	require.NoError(t, err)
	_, err = s.Remove(ctx, k)
	require.NoError(t, err)

	deleted, err := s.DeleteFromCatalog(ctx)
	require.Error(t, err)
	assert.True(t, deleted)
	assert.Equal(t, []string{"a/1"}, keys(s.Snapshot().Active))
	assert.Equal(t, "a", currentID(s))
}

func TestPersistErrorIsReturnedAfterTransition(t *testing.T) {
	p := &fakePersister{err: errors.New("disk full")}
	s := NewStore("p1", Deps{Persister: p}, Roster{})

	added, err := s.Add(context.Background(), catalogChar("a", "1"))
	require.Error(t, err)
	assert.True(t, added)
	assert.Equal(t, []string{"a/1"}, keys(s.Snapshot().Active))
}

func TestSelect_NilMeansPlayer(t *testing.T) {
	ctx := context.Background()
	s, p := newTestStore(t, catalogChar("a", "1"))

	require.NoError(t, s.Select(ctx, nil))
	assert.Nil(t, s.Snapshot().Current)
	assert.Len(t, p.saves, 1)
}

func TestSelectShortcut(t *testing.T) {
	ctx := context.Background()
	a, b := catalogChar("a", "1"), catalogChar("b", "1")

	tests := []struct {
		name    string
		n       int
		changed bool
		want    string
	}{
		{name: "player", n: 1, changed: true, want: ""},
		{name: "first active", n: 2, changed: true, want: "a"},
		{name: "last active", n: 3, changed: true, want: "b"},
		{name: "out of range", n: 4, changed: false, want: "b"},
		{name: "zero", n: 0, changed: false, want: "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t, a, b)
			changed, err := s.SelectShortcut(ctx, tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.changed, changed)
			assert.Equal(t, tt.want, currentID(s))
		})
	}
}

func TestNewStore_DropsDuplicatesAndDanglingCurrent(t *testing.T) {
	a, b := catalogChar("a", "1"), catalogChar("b", "1")
	s := NewStore("p1", Deps{}, Roster{Active: []models.ChatChar{a, a, b}, Current: &models.ChatChar{
		Character: models.Character{ID: "gone"},
		Img:       "1",
	}})

	snap := s.Snapshot()
	assert.Equal(t, []string{"a/1", "b/1"}, keys(snap.Active))
	assert.Nil(t, snap.Current)
}
