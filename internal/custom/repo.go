package custom

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"chatsim/pkg/models"
)

// SourceKey is the data source key every custom character belongs to.
const SourceKey = "custom"

// IDPrefix marks ids of player-authored characters.
const IDPrefix = "custom-"

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Character is a stored custom character.
type Character struct {
	OwnerID     string
	ID          string
	Names       map[string]string
	ShortNames  map[string]string
	Images      []string
	Description string
	CreatedAt   time.Time
}

// Model converts the stored row into a roster character.
func (c Character) Model() models.Character {
	ch := models.Character{
		ID:         c.ID,
		Kind:       models.KindCustom,
		SourceKey:  SourceKey,
		Names:      c.Names,
		ShortNames: c.ShortNames,
		Images:     c.Images,
	}
	return ch.WithSearch(c.Description)
}

func (r *Repo) Create(ctx context.Context, c Character) error {
	namesJSON, err := json.Marshal(c.Names)
	if err != nil {
		return fmt.Errorf("marshal names: %w", err)
	}
	shortJSON, err := json.Marshal(nonNilMap(c.ShortNames))
	if err != nil {
		return fmt.Errorf("marshal short names: %w", err)
	}
	imagesJSON, err := json.Marshal(c.Images)
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO custom_characters (owner_id, id, names, short_names, images, description)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.OwnerID, c.ID, string(namesJSON), string(shortJSON), string(imagesJSON), c.Description)
	if err != nil {
		return fmt.Errorf("insert custom character: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, ownerID, id string) (*Character, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT owner_id, id, names, short_names, images, description, created_at
		FROM custom_characters
		WHERE owner_id = ? AND id = ?
	`, ownerID, id)

	c, err := scanCharacter(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get custom character: %w", err)
	}
	return c, nil
}

func (r *Repo) List(ctx context.Context, ownerID string) ([]Character, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT owner_id, id, names, short_names, images, description, created_at
		FROM custom_characters
		WHERE owner_id = ?
		ORDER BY rowid ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list custom characters: %w", err)
	}
	defer rows.Close()

	var out []Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan custom character: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Characters returns the player's custom characters as roster entries.
func (r *Repo) Characters(ctx context.Context, ownerID string) ([]models.Character, error) {
	list, err := r.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Character, 0, len(list))
	for _, c := range list {
		out = append(out, c.Model())
	}
	return out, nil
}

// RemoveCharacter permanently deletes a custom character. Deleting an id that
// does not exist is not an error.
func (r *Repo) RemoveCharacter(ctx context.Context, ownerID, id string) error {
	if _, err := r.DB.ExecContext(ctx, `
		DELETE FROM custom_characters
		WHERE owner_id = ? AND id = ?
	`, ownerID, id); err != nil {
		return fmt.Errorf("delete custom character: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCharacter(s scanner) (*Character, error) {
	var (
		c          Character
		namesJSON  string
		shortJSON  string
		imagesJSON string
	)
	if err := s.Scan(&c.OwnerID, &c.ID, &namesJSON, &shortJSON, &imagesJSON, &c.Description, &c.CreatedAt); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(namesJSON), &c.Names)
	_ = json.Unmarshal([]byte(shortJSON), &c.ShortNames)
	_ = json.Unmarshal([]byte(imagesJSON), &c.Images)
	return &c, nil
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
