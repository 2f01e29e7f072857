package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vsokolov/taskward/internal/apperrors"
	"github.com/vsokolov/taskward/internal/models"
)

type RefreshTokenRepo struct {
	DB DBTX
}

const saveToken = `-- name: SaveRefreshToken
INSERT INTO refresh_tokens (token, user_id, created_at, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (token) DO NOTHING
`

func (r *RefreshTokenRepo) Save(ctx context.Context, token models.RefreshToken) error {
	_, err := r.DB.Exec(ctx, saveToken, token.Token, token.UserID, token.CreatedAt, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const getToken = `-- name: GetRefreshToken
SELECT user_id, created_at, expires_at
FROM refresh_tokens
WHERE token = $1
`

// Get record by the token string itself
// Returns the record even if it's already past expires_at
func (r *RefreshTokenRepo) Get(ctx context.Context, tokenString string) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, getToken, tokenString)
	token, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.RefreshToken, error) {
		t := models.RefreshToken{Token: tokenString}
		err := row.Scan(&t.UserID, &t.CreatedAt, &t.ExpiresAt)
		return t, err
	})

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, apperrors.ErrRefreshTokenNotFound
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const deleteToken = `-- name: DeleteRefreshToken
DELETE FROM refresh_tokens
WHERE token = $1
`

// Delete record by token string
// Deleting a token that was never persisted is fine
func (r *RefreshTokenRepo) Delete(ctx context.Context, tokenString string) error {
	_, err := r.DB.Exec(ctx, deleteToken, tokenString)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
