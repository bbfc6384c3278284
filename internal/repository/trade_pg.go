package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/robogate/robogate/internal/model"
)

type PostgresTradeRepo struct {
	db *sqlx.DB
}

func NewPostgresTradeRepo(db *sqlx.DB) *PostgresTradeRepo {
	repo := &PostgresTradeRepo{db: db}
	_ = repo.ensureSchema(context.Background())
	return repo
}

type tradeDB struct {
	ID            string    `db:"id"`
	AccountID     string    `db:"account_id"`
	Source        string    `db:"source"`
	LongJSON      []byte    `db:"long_assets"`
	ShortJSON     []byte    `db:"short_assets"`
	StakeUSD      float64   `db:"stake_usd"`
	Leverage      float64   `db:"leverage"`
	NotionalUSD   float64   `db:"notional_usd"`
	Status        string    `db:"status"`
	OrderPayload  []byte    `db:"order_payload"`
	VenueResponse []byte    `db:"venue_response"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

const tradeColumns = `id, account_id, source, long_assets, short_assets, stake_usd, leverage, notional_usd, status, order_payload, venue_response, created_at, updated_at`

// CreatePending 以 pending 状态落库；交易记录只追加，从不删除
func (r *PostgresTradeRepo) CreatePending(ctx context.Context, t *model.Trade) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.Status = model.TradeStatusPending
	t.CreatedAt = now
	t.UpdatedAt = now

	long, _ := json.Marshal(t.LongAssets)
	short, _ := json.Marshal(t.ShortAssets)

	query := `INSERT INTO trades (` + tradeColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.AccountID, t.Source, long, short, t.StakeUSD, t.Leverage, t.NotionalUSD,
		t.Status, []byte(t.OrderPayload), []byte(t.VenueResponse), t.CreatedAt, t.UpdatedAt)
	return err
}

// SetTerminal applies the single allowed terminal transition. The WHERE
// clause guards the state machine: a trade that already left pending is
// never overwritten.
func (r *PostgresTradeRepo) SetTerminal(ctx context.Context, id string, status model.TradeStatus, venueResponse json.RawMessage) error {
	if status != model.TradeStatusCompleted && status != model.TradeStatusFailed {
		return fmt.Errorf("invalid terminal status %q", status)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE trades
		SET status = $2, venue_response = $3, updated_at = $4
		WHERE id = $1 AND status = $5
	`, id, status, []byte(venueResponse), time.Now().UTC(), model.TradeStatusPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("trade %s: no pending row to transition", id)
	}
	return nil
}

func (r *PostgresTradeRepo) GetByID(ctx context.Context, id string) (*model.Trade, error) {
	var td tradeDB
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = $1 LIMIT 1`
	if err := r.db.GetContext(ctx, &td, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toTrade(&td)
}

func (r *PostgresTradeRepo) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*model.Trade, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.queryTrades(ctx, query, accountID, limit, offset)
}

// ListCompletedSince 返回账户自 since 起的全部 completed 交易，
// 供日内名义金额聚合使用；pending/failed 不计入
func (r *PostgresTradeRepo) ListCompletedSince(ctx context.Context, accountID string, since time.Time) ([]*model.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades
	          WHERE account_id = $1 AND status = $2 AND created_at >= $3`
	return r.queryTrades(ctx, query, accountID, model.TradeStatusCompleted, since)
}

func (r *PostgresTradeRepo) queryTrades(ctx context.Context, query string, args ...interface{}) ([]*model.Trade, error) {
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []*model.Trade
	for rows.Next() {
		var td tradeDB
		if err := rows.StructScan(&td); err != nil {
			return nil, err
		}
		t, err := toTrade(&td)
		if err != nil {
			return nil, err
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

func toTrade(td *tradeDB) (*model.Trade, error) {
	t := &model.Trade{
		ID:            td.ID,
		AccountID:     td.AccountID,
		Source:        model.TradeSource(td.Source),
		StakeUSD:      td.StakeUSD,
		Leverage:      td.Leverage,
		NotionalUSD:   td.NotionalUSD,
		Status:        model.TradeStatus(td.Status),
		OrderPayload:  json.RawMessage(td.OrderPayload),
		VenueResponse: json.RawMessage(td.VenueResponse),
		CreatedAt:     td.CreatedAt,
		UpdatedAt:     td.UpdatedAt,
	}
	if len(td.LongJSON) > 0 {
		if err := json.Unmarshal(td.LongJSON, &t.LongAssets); err != nil {
			return nil, err
		}
	}
	if len(td.ShortJSON) > 0 {
		if err := json.Unmarshal(td.ShortJSON, &t.ShortAssets); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (r *PostgresTradeRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			source TEXT NOT NULL,
			long_assets JSONB,
			short_assets JSONB,
			stake_usd DOUBLE PRECISION NOT NULL,
			leverage DOUBLE PRECISION NOT NULL,
			notional_usd DOUBLE PRECISION NOT NULL,
			status TEXT NOT NULL,
			order_payload JSONB,
			venue_response JSONB,
			created_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ
		)
	`)
	if err != nil {
		return err
	}
	_, _ = r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_trades_account_status_created ON trades (account_id, status, created_at)`)
	return nil
}
