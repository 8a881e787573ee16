package chat

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chatsim/pkg/models"
)

// Repo stores each player's chat as a dense 0..n-1 sequence of positions.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) List(ctx context.Context, ownerID string) ([]models.ChatItem, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, position, char_id, img, content, is_image, created_at
		FROM chat_items
		WHERE owner_id = ?
		ORDER BY position ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query chat items: %w", err)
	}
	defer rows.Close()

	items := make([]models.ChatItem, 0)
	for rows.Next() {
		var (
			it          models.ChatItem
			charID, img sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.Position, &charID, &img, &it.Content, &it.IsImage, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat item: %w", err)
		}
		if charID.Valid {
			it.Char = &models.CharRef{CharID: charID.String, Img: img.String}
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows chat items: %w", err)
	}
	return items, nil
}

// Add stores item. A negative insertIdx appends and returns -1 as the next
// index. Otherwise the item is inserted at insertIdx (clamped to the end) and
// the returned next index points just after it.
func (r *Repo) Add(ctx context.Context, ownerID string, item models.ChatItem, insertIdx int) (models.ChatItem, int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.ChatItem{}, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_items WHERE owner_id = ?`, ownerID).Scan(&n); err != nil {
		return models.ChatItem{}, 0, fmt.Errorf("count chat items: %w", err)
	}

	pos, next := n, -1
	if insertIdx >= 0 {
		pos = min(insertIdx, n)
		next = min(pos+1, n+1)
		if _, err := tx.ExecContext(ctx, `
			UPDATE chat_items SET position = position + 1
			WHERE owner_id = ? AND position >= ?
		`, ownerID, pos); err != nil {
			return models.ChatItem{}, 0, fmt.Errorf("shift chat items: %w", err)
		}
	}

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.Position = pos
	item.CreatedAt = time.Now().UTC()

	var charID, img sql.NullString
	if item.Char != nil {
		charID = sql.NullString{String: item.Char.CharID, Valid: true}
		img = sql.NullString{String: item.Char.Img, Valid: true}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chat_items (id, owner_id, position, char_id, img, content, is_image, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, ownerID, pos, charID, img, item.Content, item.IsImage, item.CreatedAt); err != nil {
		return models.ChatItem{}, 0, fmt.Errorf("insert chat item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.ChatItem{}, 0, fmt.Errorf("commit chat item: %w", err)
	}
	return item, next, nil
}

// Delete removes one item and closes the gap. It reports false when the item
// does not exist.
func (r *Repo) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var pos int
	err = tx.QueryRowContext(ctx, `SELECT position FROM chat_items WHERE owner_id = ? AND id = ?`, ownerID, id).Scan(&pos)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("get chat item: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_items WHERE owner_id = ? AND id = ?`, ownerID, id); err != nil {
		return false, fmt.Errorf("delete chat item: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE chat_items SET position = position - 1
		WHERE owner_id = ? AND position > ?
	`, ownerID, pos); err != nil {
		return false, fmt.Errorf("shift chat items: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete: %w", err)
	}
	return true, nil
}

// ClearAuthor turns every item written by charID into a player item and
// returns how many changed.
func (r *Repo) ClearAuthor(ctx context.Context, ownerID, charID string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE chat_items SET char_id = NULL, img = NULL
		WHERE owner_id = ? AND char_id = ?
	`, ownerID, charID)
	if err != nil {
		return 0, fmt.Errorf("clear author: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear author rows: %w", err)
	}
	return n, nil
}
