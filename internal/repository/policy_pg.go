package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/robogate/robogate/internal/model"
)

type PostgresPolicyRepo struct {
	db *sqlx.DB
}

func NewPostgresPolicyRepo(db *sqlx.DB) *PostgresPolicyRepo {
	repo := &PostgresPolicyRepo{db: db}
	_ = repo.ensureSchema(context.Background())
	return repo
}

// DB Model：allowed_pairs 存 JSONB
type policyDB struct {
	ID                  string    `db:"id"`
	AccountID           string    `db:"account_id"`
	MaxLeverage         float64   `db:"max_leverage"`
	MaxDailyNotionalUSD float64   `db:"max_daily_notional_usd"`
	AllowedPairsJSON    []byte    `db:"allowed_pairs"`
	MaxDrawdownPct      float64   `db:"max_drawdown_pct"`
	CreatedAt           time.Time `db:"created_at"`
}

// GetCurrent 返回该账户最新创建的策略行；旧行可能残留但不生效
func (r *PostgresPolicyRepo) GetCurrent(ctx context.Context, accountID string) (*model.Policy, error) {
	var pd policyDB
	query := `SELECT id, account_id, max_leverage, max_daily_notional_usd, allowed_pairs, max_drawdown_pct, created_at
	          FROM policies WHERE account_id = $1 ORDER BY created_at DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &pd, query, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toPolicy(&pd)
}

// Create inserts a new current row. Field validation happens in the service;
// by the time a policy reaches here it is well-formed.
func (r *PostgresPolicyRepo) Create(ctx context.Context, p *model.Policy) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()
	pairs, _ := json.Marshal(p.AllowedPairs)

	query := `INSERT INTO policies (id, account_id, max_leverage, max_daily_notional_usd, allowed_pairs, max_drawdown_pct, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.AccountID, p.MaxLeverage, p.MaxDailyNotionalUSD, pairs, p.MaxDrawdownPct, p.CreatedAt)
	return err
}

func toPolicy(pd *policyDB) (*model.Policy, error) {
	p := &model.Policy{
		ID:                  pd.ID,
		AccountID:           pd.AccountID,
		MaxLeverage:         pd.MaxLeverage,
		MaxDailyNotionalUSD: pd.MaxDailyNotionalUSD,
		MaxDrawdownPct:      pd.MaxDrawdownPct,
		CreatedAt:           pd.CreatedAt,
	}
	if len(pd.AllowedPairsJSON) > 0 {
		if err := json.Unmarshal(pd.AllowedPairsJSON, &p.AllowedPairs); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (r *PostgresPolicyRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS policies (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			max_leverage DOUBLE PRECISION NOT NULL DEFAULT 0,
			max_daily_notional_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
			allowed_pairs JSONB,
			max_drawdown_pct DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ
		)
	`)
	if err != nil {
		return err
	}
	_, _ = r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_policies_account_created ON policies (account_id, created_at DESC)`)
	return nil
}
