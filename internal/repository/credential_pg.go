package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/robogate/robogate/internal/model"
)

// PostgresCredentialRepo 存取委托交易凭证
// 签发与刷新由核心之外的认证流程写入，这里只负责查找
type PostgresCredentialRepo struct {
	db *sqlx.DB
}

func NewPostgresCredentialRepo(db *sqlx.DB) *PostgresCredentialRepo {
	repo := &PostgresCredentialRepo{db: db}
	_ = repo.ensureSchema(context.Background())
	return repo
}

func (r *PostgresCredentialRepo) GetByAddress(ctx context.Context, accountAddress string) (*model.DelegatedCredential, error) {
	var cred model.DelegatedCredential
	query := `SELECT account_address, token, expires_at FROM delegated_credentials WHERE account_address = $1 LIMIT 1`
	if err := r.db.GetContext(ctx, &cred, query, accountAddress); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cred, nil
}

// Upsert is called by the external onboarding flow after issuing or
// refreshing a credential.
func (r *PostgresCredentialRepo) Upsert(ctx context.Context, cred *model.DelegatedCredential) error {
	query := `
		INSERT INTO delegated_credentials (account_address, token, expires_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_address)
		DO UPDATE SET token = $2, expires_at = $3, updated_at = $4
	`
	_, err := r.db.ExecContext(ctx, query, cred.AccountAddress, cred.Token, cred.ExpiresAt, time.Now().UTC())
	return err
}

func (r *PostgresCredentialRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS delegated_credentials (
			account_address TEXT PRIMARY KEY,
			token TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ
		)
	`)
	return err
}
