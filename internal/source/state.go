package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"chatsim/pkg/models"
)

// State pairs a source with a player's enabled flag and toggle state.
type State struct {
	Source  Source
	Enabled bool
	Filters []models.FilterGroup
}

func DefaultState(s Source) State {
	return State{Source: s, Enabled: true, Filters: s.DefaultFilters()}
}

func (s State) Key() string { return s.Source.Key() }

// Toggle flips one filter; unknown group keys or indexes are ignored.
func (s State) Toggle(groupKey string, idx int) State {
	s.Filters = models.CloneFilters(s.Filters)
	for gi := range s.Filters {
		if s.Filters[gi].GroupKey != groupKey {
			continue
		}
		if idx >= 0 && idx < len(s.Filters[gi].Filters) {
			s.Filters[gi].Filters[idx].Active = !s.Filters[gi].Filters[idx].Active
		}
	}
	return s
}

// reconcile lays stored toggles over a source's current filter groups.
// Groups or toggles added to the source since the state was saved start active;
// stored entries the source no longer declares are dropped.
func reconcile(current []models.FilterGroup, stored []models.FilterGroup) []models.FilterGroup {
	type toggleKey struct{ group, tag, name string }
	saved := make(map[toggleKey]bool)
	for _, g := range stored {
		for _, f := range g.Filters {
			saved[toggleKey{g.GroupKey, f.Tag, f.Name}] = f.Active
		}
	}

	out := models.CloneFilters(current)
	for gi := range out {
		for fi := range out[gi].Filters {
			f := &out[gi].Filters[fi]
			if active, ok := saved[toggleKey{out[gi].GroupKey, f.Tag, f.Name}]; ok {
				f.Active = active
			} else {
				f.Active = true
			}
		}
	}
	return out
}

type StateRepo struct {
	DB *sql.DB
}

func NewStateRepo(db *sql.DB) *StateRepo {
	return &StateRepo{DB: db}
}

// Load returns one state per registered source, in registry order.
func (r *StateRepo) Load(ctx context.Context, ownerID string, reg *Registry) ([]State, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT source_key, enabled, filters
		FROM source_states
		WHERE owner_id = ?
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list source states: %w", err)
	}
	defer rows.Close()

	type stored struct {
		enabled bool
		filters []models.FilterGroup
	}
	byKey := make(map[string]stored)
	for rows.Next() {
		var (
			key         string
			enabled     bool
			filtersJSON string
		)
		if err := rows.Scan(&key, &enabled, &filtersJSON); err != nil {
			return nil, fmt.Errorf("scan source state: %w", err)
		}
		var filters []models.FilterGroup
		if err := json.Unmarshal([]byte(filtersJSON), &filters); err != nil {
			log.Printf("[sources] player %s: stored filters for %s unreadable, resetting to defaults: %v", ownerID, key, err)
			filters = nil
		}
		byKey[key] = stored{enabled: enabled, filters: filters}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}

	sources := reg.All()
	out := make([]State, 0, len(sources))
	for _, s := range sources {
		st, ok := byKey[s.Key()]
		if !ok {
			out = append(out, DefaultState(s))
			continue
		}
		out = append(out, State{
			Source:  s,
			Enabled: st.enabled,
			Filters: reconcile(s.DefaultFilters(), st.filters),
		})
	}
	return out, nil
}

// Save upserts one state.
func (r *StateRepo) Save(ctx context.Context, ownerID string, st State) error {
	filters := st.Filters
	if filters == nil {
		filters = []models.FilterGroup{}
	}
	filtersJSON, err := json.Marshal(filters)
	if err != nil {
		return fmt.Errorf("marshal filters for %s: %w", st.Key(), err)
	}

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO source_states (owner_id, source_key, enabled, filters, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(owner_id, source_key) DO UPDATE SET
			enabled = excluded.enabled,
			filters = excluded.filters,
			updated_at = CURRENT_TIMESTAMP
	`, ownerID, st.Key(), st.Enabled, string(filtersJSON))
	if err != nil {
		return fmt.Errorf("save source state: %w", err)
	}
	return nil
}
