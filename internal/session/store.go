package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"chatsim/pkg/models"
)

// Persister saves a player's active roster after every mutating transition.
type Persister interface {
	SaveRoster(ctx context.Context, ownerID string, r Roster) error
}

// CatalogRemover permanently deletes a custom character.
type CatalogRemover interface {
	RemoveCharacter(ctx context.Context, ownerID, id string) error
}

// AuthorClearer nulls out the author of every chat item written by a character.
type AuthorClearer interface {
	ClearAuthor(ctx context.Context, ownerID, charID string) (int64, error)
}

// Deps are the collaborators a Store calls into. Nil members are skipped.
type Deps struct {
	Persister Persister
	Catalog   CatalogRemover
	History   AuthorClearer
}

// Roster is the persisted part of a session.
type Roster struct {
	Active  []models.ChatChar
	Current *models.ChatChar
}

// Snapshot is a point-in-time copy of a Store.
type Snapshot struct {
	Roster
	// Pending is the custom character awaiting a removal decision.
	Pending *models.Character
}

// RemoveResult reports what Remove did.
type RemoveResult string

const (
	RemoveNoop    RemoveResult = "noop"
	RemoveDone    RemoveResult = "removed"
	RemovePending RemoveResult = "pending"
)

// Store owns one player's active characters and current author.
//
// ActiveChars is unique by identity key. Current is nil (the player) or an
// entry of ActiveChars. Each transition holds the lock until the invariants
// hold again, so transitions never interleave.
type Store struct {
	mu      sync.Mutex
	ownerID string
	deps    Deps

	active  []models.ChatChar
	current *models.ChatChar
	pending *models.Character
}

func NewStore(ownerID string, deps Deps, r Roster) *Store {
	s := &Store{ownerID: ownerID, deps: deps}
	for _, c := range r.Active {
		if s.indexByKey(c.Key()) < 0 {
			s.active = append(s.active, c)
		}
	}
	if r.Current != nil && s.indexByKey(r.Current.Key()) >= 0 {
		cur := *r.Current
		s.current = &cur
	}
	return s
}

func (s *Store) OwnerID() string { return s.ownerID }

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{Roster: s.rosterLocked()}
	if s.pending != nil {
		p := *s.pending
		snap.Pending = &p
	}
	return snap
}

// Add appends ch and makes it current. Adding a key that is already active
// changes nothing and reports false.
func (s *Store) Add(ctx context.Context, ch models.ChatChar) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexByKey(ch.Key()) >= 0 {
		return false, nil
	}
	s.active = append(s.active, ch)
	s.current = &ch
	return true, s.persistLocked(ctx)
}

// Select sets the current author; nil selects the player.
func (s *Store) Select(ctx context.Context, ch *models.ChatChar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch == nil {
		s.current = nil
	} else {
		cur := *ch
		s.current = &cur
	}
	return s.persistLocked(ctx)
}

// SelectShortcut maps the composer's numbered shortcut: 1 is the player and
// n in [2, len+1] is the (n-1)th active character. Other numbers do nothing.
func (s *Store) SelectShortcut(ctx context.Context, n int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case n == 1:
		s.current = nil
	case n >= 2 && n <= len(s.active)+1:
		cur := s.active[n-2]
		s.current = &cur
	default:
		return false, nil
	}
	return true, s.persistLocked(ctx)
}

// Remove takes ch off the active row. Catalog characters go immediately.
// Custom characters only become pending; the caller must follow up with
// Cancel, RemoveFromRow or DeleteFromCatalog.
func (s *Store) Remove(ctx context.Context, ch models.ChatChar) (RemoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch.Character.IsCustom() {
		p := ch.Character
		s.pending = &p
		return RemovePending, nil
	}

	key := ch.Key()
	matches := func(c models.ChatChar) bool { return c.Key() == key }
	if !s.removeLocked(matches) {
		return RemoveNoop, nil
	}
	return RemoveDone, s.persistLocked(ctx)
}

// Pending returns the custom character awaiting confirmation, if any.
func (s *Store) Pending() *models.Character {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	p := *s.pending
	return &p
}

// Cancel drops a pending custom removal.
func (s *Store) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := s.pending != nil
	s.pending = nil
	return had
}

// RemoveFromRow removes every active entry of the pending custom character
// and keeps the character in the catalog.
func (s *Store) RemoveFromRow(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return false, nil
	}
	id := s.pending.ID
	s.pending = nil
	s.removeLocked(byCharID(id))
	return true, s.persistLocked(ctx)
}

// DeleteFromCatalog permanently deletes the pending custom character, clears
// it as the author of past chat items and removes it from the active row.
// Collaborator errors are joined and returned once the row is updated.
func (s *Store) DeleteFromCatalog(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return false, nil
	}
	id := s.pending.ID

	var errs []error
	if s.deps.Catalog != nil {
		if err := s.deps.Catalog.RemoveCharacter(ctx, s.ownerID, id); err != nil {
			errs = append(errs, fmt.Errorf("remove custom character %s: %w", id, err))
		}
	}
	if s.deps.History != nil {
		if _, err := s.deps.History.ClearAuthor(ctx, s.ownerID, id); err != nil {
			errs = append(errs, fmt.Errorf("clear chat authors for %s: %w", id, err))
		}
	}

	s.pending = nil
	s.removeLocked(byCharID(id))
	if err := s.persistLocked(ctx); err != nil {
		errs = append(errs, err)
	}
	return true, errors.Join(errs...)
}

func byCharID(id string) func(models.ChatChar) bool {
	return func(c models.ChatChar) bool { return c.Character.ID == id }
}

// removeLocked reassigns current and then drops every entry matching the
// removed key. It reports whether any entry was dropped; when none matches
// nothing changes, current included.
func (s *Store) removeLocked(matches func(models.ChatChar) bool) bool {
	if !slices.ContainsFunc(s.active, matches) {
		return false
	}
	s.reassignLocked(matches)

	kept := s.active[:0:0]
	for _, c := range s.active {
		if !matches(c) {
			kept = append(kept, c)
		}
	}
	s.active = kept
	return true
}

// reassignLocked runs against the pre-removal list, which must hold at least
// one match. If current is being removed it moves to the entry just before the
// first removed one, or to the player when there is none.
func (s *Store) reassignLocked(matches func(models.ChatChar) bool) {
	if s.current == nil || !matches(*s.current) {
		return
	}
	for i, c := range s.active {
		if !matches(c) {
			continue
		}
		if i > 0 {
			prev := s.active[i-1]
			s.current = &prev
		} else {
			s.current = nil
		}
		return
	}
}

func (s *Store) indexByKey(key models.ChatCharKey) int {
	for i, c := range s.active {
		if c.Key() == key {
			return i
		}
	}
	return -1
}

func (s *Store) rosterLocked() Roster {
	r := Roster{Active: append([]models.ChatChar(nil), s.active...)}
	if s.current != nil {
		cur := *s.current
		r.Current = &cur
	}
	return r
}

func (s *Store) persistLocked(ctx context.Context) error {
	if s.deps.Persister == nil {
		return nil
	}
	if err := s.deps.Persister.SaveRoster(ctx, s.ownerID, s.rosterLocked()); err != nil {
		return fmt.Errorf("save roster: %w", err)
	}
	return nil
}
