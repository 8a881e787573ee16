package session

import (
	"context"
	"fmt"
	"log"
	"sync"

	"chatsim/pkg/models"
)

// CharacterLookup resolves a stored character id for a player.
type CharacterLookup interface {
	Lookup(ctx context.Context, playerID, id string) (models.Character, bool, error)
}

// Manager keeps one Store per player, loading it from the repo on first use.
type Manager struct {
	Repo   *Repo
	Lookup CharacterLookup
	// Catalog and History are handed to every Store as collaborators.
	Catalog CatalogRemover
	History AuthorClearer

	mu     sync.Mutex
	stores map[string]*Store
}

func NewManager(repo *Repo, lookup CharacterLookup, catalog CatalogRemover, history AuthorClearer) *Manager {
	return &Manager{
		Repo:    repo,
		Lookup:  lookup,
		Catalog: catalog,
		History: history,
		stores:  make(map[string]*Store),
	}
}

func (m *Manager) Get(ctx context.Context, playerID string) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[playerID]; ok {
		return s, nil
	}

	roster, err := m.load(ctx, playerID)
	if err != nil {
		return nil, err
	}
	s := NewStore(playerID, Deps{Persister: m.Repo, Catalog: m.Catalog, History: m.History}, roster)
	m.stores[playerID] = s
	return s, nil
}

// load hydrates stored references. Characters that no longer exist are
// dropped, and a dangling current falls back to the player.
func (m *Manager) load(ctx context.Context, playerID string) (Roster, error) {
	refs, cur, err := m.Repo.LoadRefs(ctx, playerID)
	if err != nil {
		return Roster{}, err
	}

	var roster Roster
	for _, ref := range refs {
		ch, ok, err := m.resolve(ctx, playerID, ref)
		if err != nil {
			return Roster{}, err
		}
		if ok {
			roster.Active = append(roster.Active, ch)
		}
	}
	if cur != nil {
		ch, ok, err := m.resolve(ctx, playerID, *cur)
		if err != nil {
			return Roster{}, err
		}
		if ok {
			roster.Current = &ch
		}
	}
	return roster, nil
}

func (m *Manager) resolve(ctx context.Context, playerID string, ref models.CharRef) (models.ChatChar, bool, error) {
	ch, ok, err := m.Lookup.Lookup(ctx, playerID, ref.CharID)
	if err != nil {
		return models.ChatChar{}, false, fmt.Errorf("lookup %s: %w", ref.CharID, err)
	}
	if !ok {
		log.Printf("[session] dropping unknown character %s for player %s", ref.CharID, playerID)
		return models.ChatChar{}, false, nil
	}
	return models.NewChatChar(ch, ref.Img), true, nil
}

// Current returns the player's current author; nil means the player.
func (m *Manager) Current(ctx context.Context, playerID string) (*models.ChatChar, error) {
	s, err := m.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return s.Snapshot().Current, nil
}
