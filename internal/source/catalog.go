package source

import (
	"sync"

	"chatsim/pkg/models"
)

// Catalog holds the built-in characters loaded from fetchable sources.
type Catalog struct {
	mu    sync.RWMutex
	order []string
	chars map[string]models.Character
}

func NewCatalog() *Catalog {
	return &Catalog{chars: make(map[string]models.Character)}
}

func (c *Catalog) Replace(chars []models.Character) {
	m := make(map[string]models.Character, len(chars))
	order := make([]string, 0, len(chars))
	for _, ch := range chars {
		if _, ok := m[ch.ID]; !ok {
			order = append(order, ch.ID)
		}
		m[ch.ID] = ch
	}

	c.mu.Lock()
	c.chars = m
	c.order = order
	c.mu.Unlock()
}

func (c *Catalog) Get(id string) (models.Character, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.chars[id]
	return ch, ok
}

// All returns the characters in load order.
func (c *Catalog) All() []models.Character {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Character, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.chars[id])
	}
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.chars)
}
