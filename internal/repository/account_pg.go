package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/robogate/robogate/internal/model"
)

type PostgresAccountRepo struct {
	db *sqlx.DB
}

func NewPostgresAccountRepo(db *sqlx.DB) *PostgresAccountRepo {
	repo := &PostgresAccountRepo{db: db}
	_ = repo.ensureSchema(context.Background())
	return repo
}

func (r *PostgresAccountRepo) GetByID(ctx context.Context, id string) (*model.Account, error) {
	var acc model.Account
	query := `SELECT id, user_id, address, equity_usd, peak_equity, drawdown_pct, created_at, updated_at
	          FROM accounts WHERE id = $1 LIMIT 1`
	if err := r.db.GetContext(ctx, &acc, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &acc, nil
}

func (r *PostgresAccountRepo) GetByUserID(ctx context.Context, userID string) (*model.Account, error) {
	var acc model.Account
	query := `SELECT id, user_id, address, equity_usd, peak_equity, drawdown_pct, created_at, updated_at
	          FROM accounts WHERE user_id = $1 LIMIT 1`
	if err := r.db.GetContext(ctx, &acc, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &acc, nil
}

func (r *PostgresAccountRepo) Create(ctx context.Context, acc *model.Account) error {
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	acc.CreatedAt = now
	acc.UpdatedAt = now
	query := `INSERT INTO accounts (id, user_id, address, equity_usd, peak_equity, drawdown_pct, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		acc.ID, acc.UserID, acc.Address, acc.EquityUSD, acc.PeakEquity, acc.DrawdownPct, acc.CreatedAt, acc.UpdatedAt)
	return err
}

// UpdateEquity 持久化一次权益观测后的峰值与回撤
func (r *PostgresAccountRepo) UpdateEquity(ctx context.Context, id string, equity, peak, drawdownPct float64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET equity_usd = $2, peak_equity = $3, drawdown_pct = $4, updated_at = $5
		WHERE id = $1
	`, id, equity, peak, drawdownPct, time.Now().UTC())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresAccountRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			user_id TEXT UNIQUE NOT NULL,
			address TEXT NOT NULL,
			equity_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
			peak_equity DOUBLE PRECISION NOT NULL DEFAULT 0,
			drawdown_pct DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ
		)
	`)
	return err
}
