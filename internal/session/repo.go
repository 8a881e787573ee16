package session

import (
	"context"
	"database/sql"
	"fmt"

	"chatsim/pkg/models"
)

// Repo persists active rosters as (char id, image) references.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// SaveRoster replaces the stored roster of ownerID.
func (r *Repo) SaveRoster(ctx context.Context, ownerID string, roster Roster) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM active_chars WHERE owner_id = ?`, ownerID); err != nil {
		return fmt.Errorf("clear active chars: %w", err)
	}
	for i, c := range roster.Active {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO active_chars (owner_id, position, char_id, img)
			VALUES (?, ?, ?, ?)
		`, ownerID, i, c.Character.ID, c.Img); err != nil {
			return fmt.Errorf("insert active char: %w", err)
		}
	}

	var charID, img sql.NullString
	if roster.Current != nil {
		charID = sql.NullString{String: roster.Current.Character.ID, Valid: true}
		img = sql.NullString{String: roster.Current.Img, Valid: true}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO current_chars (owner_id, char_id, img)
		VALUES (?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			char_id = excluded.char_id,
			img = excluded.img
	`, ownerID, charID, img); err != nil {
		return fmt.Errorf("upsert current char: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit roster: %w", err)
	}
	return nil
}

// LoadRefs returns the stored active references in order and the current
// author, which is nil for the player.
func (r *Repo) LoadRefs(ctx context.Context, ownerID string) ([]models.CharRef, *models.CharRef, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT char_id, img FROM active_chars
		WHERE owner_id = ?
		ORDER BY position ASC
	`, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("query active chars: %w", err)
	}
	defer rows.Close()

	var active []models.CharRef
	for rows.Next() {
		var ref models.CharRef
		if err := rows.Scan(&ref.CharID, &ref.Img); err != nil {
			return nil, nil, fmt.Errorf("scan active char: %w", err)
		}
		active = append(active, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows active chars: %w", err)
	}

	var charID, img sql.NullString
	err = r.DB.QueryRowContext(ctx, `SELECT char_id, img FROM current_chars WHERE owner_id = ?`, ownerID).Scan(&charID, &img)
	if err != nil && err != sql.ErrNoRows {
		return nil, nil, fmt.Errorf("get current char: %w", err)
	}
	var current *models.CharRef
	if charID.Valid {
		current = &models.CharRef{CharID: charID.String, Img: img.String}
	}
	return active, current, nil
}
