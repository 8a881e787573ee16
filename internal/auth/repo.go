package auth

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type Player struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	TokenVersion int
	CreatedAt    time.Time
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const playerColumns = `id, username, email, password_hash, token_version, created_at`

func (r *Repo) CreatePlayer(ctx context.Context, p Player) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO players (id, username, email, password_hash)
		VALUES (?, ?, ?, ?)
	`, p.ID, p.Username, p.Email, p.PasswordHash)
	if err != nil {
		return fmt.Errorf("create player: %w", err)
	}
	return nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*Player, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	row := r.DB.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE LOWER(email) = ?`, email)
	return scanPlayer(row, "get by email")
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (*Player, error) {
	username = strings.TrimSpace(username)
	row := r.DB.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE username = ?`, username)
	return scanPlayer(row, "get by username")
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Player, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = ?`, id)
	return scanPlayer(row, "get by id")
}

func scanPlayer(row *sql.Row, op string) (*Player, error) {
	var p Player
	if err := row.Scan(&p.ID, &p.Username, &p.Email, &p.PasswordHash, &p.TokenVersion, &p.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}

// GetTokenVersion returns -1 for unknown players so that no token matches.
func (r *Repo) GetTokenVersion(ctx context.Context, id string) (int, error) {
	var version int
	err := r.DB.QueryRowContext(ctx, `SELECT token_version FROM players WHERE id = ?`, id).Scan(&version)
	if err != nil {
		if err == sql.ErrNoRows {
			return -1, nil
		}
		return 0, fmt.Errorf("get token version: %w", err)
	}
	return version, nil
}

func (r *Repo) UpdatePasswordAndBumpTokenVersion(ctx context.Context, id string, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE players
		SET password_hash = ?, token_version = token_version + 1
		WHERE id = ?
	`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectOneRow(res, "update password")
}

func (r *Repo) BumpTokenVersion(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE players
		SET token_version = token_version + 1
		WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("bump token version: %w", err)
	}
	return expectOneRow(res, "bump token version")
}

func expectOneRow(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: player not found", op)
	}
	return nil
}
