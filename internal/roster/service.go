package roster

import (
	"context"
	"fmt"

	"golang.org/x/text/language"

	"chatsim/internal/custom"
	"chatsim/internal/source"
	"chatsim/pkg/models"
)

// Service combines the built-in catalog with a player's custom characters.
type Service struct {
	Catalog  *source.Catalog
	Custom   *custom.Repo
	States   *source.StateRepo
	Registry *source.Registry
}

func NewService(cat *source.Catalog, customRepo *custom.Repo, states *source.StateRepo, reg *source.Registry) *Service {
	return &Service{Catalog: cat, Custom: customRepo, States: states, Registry: reg}
}

// Characters returns every character visible to the player before filtering.
func (s *Service) Characters(ctx context.Context, playerID string) ([]models.Character, error) {
	customs, err := s.Custom.Characters(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("load custom characters: %w", err)
	}
	all := s.Catalog.All()
	return append(all, customs...), nil
}

// Lookup finds a character by id among the catalog and the player's custom
// characters.
func (s *Service) Lookup(ctx context.Context, playerID, id string) (models.Character, bool, error) {
	if ch, ok := s.Catalog.Get(id); ok {
		return ch, true, nil
	}
	c, err := s.Custom.Get(ctx, playerID, id)
	if err != nil {
		return models.Character{}, false, err
	}
	if c == nil {
		return models.Character{}, false, nil
	}
	return c.Model(), true, nil
}

// Search applies the player's source states and query to the roster.
func (s *Service) Search(ctx context.Context, playerID, query string, lang language.Tag) ([]models.Character, error) {
	chars, err := s.Characters(ctx, playerID)
	if err != nil {
		return nil, err
	}
	states, err := s.States.Load(ctx, playerID, s.Registry)
	if err != nil {
		return nil, fmt.Errorf("load source states: %w", err)
	}
	return FilterRoster(chars, query, states, lang), nil
}
