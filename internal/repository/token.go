package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sonderhq/account-api/internal/model"
)

var ErrTokenRevoked = errors.New("token has been revoked")

type RevokedTokenRepository interface {
	Revoke(token *model.RevokedToken) error
	IsRevoked(jti string) (bool, error)
	DeleteExpired() (int64, error)
}

type revokedTokenRepository struct {
	db *sqlx.DB
}

func NewRevokedTokenRepository(db *sqlx.DB) RevokedTokenRepository {
	return &revokedTokenRepository{db: db}
}

func (r *revokedTokenRepository) Revoke(token *model.RevokedToken) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.RevokedAt.IsZero() {
		token.RevokedAt = time.Now()
	}

	query := `
		INSERT INTO revoked_tokens (id, jti, user_id, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(query,
		token.ID,
		token.JTI,
		token.UserID,
		token.ExpiresAt,
		token.RevokedAt,
	)
	return err
}

func (r *revokedTokenRepository) IsRevoked(jti string) (bool, error) {
	var t model.RevokedToken
	query := `SELECT * FROM revoked_tokens WHERE jti = $1`

	err := r.db.Get(&t, query, jti)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

// DeleteExpired sweeps revocation rows whose tokens have expired anyway.
// Maintenance operation, not on the request path.
func (r *revokedTokenRepository) DeleteExpired() (int64, error) {
	query := `DELETE FROM revoked_tokens WHERE expires_at < $1`

	result, err := r.db.Exec(query, time.Now())
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
