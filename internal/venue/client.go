package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/robogate/robogate/internal/config"
	"github.com/robogate/robogate/internal/model"
	"github.com/robogate/robogate/internal/pkg/metrics"
)

// OrderPayload 是交易所下单接口的请求体，按 usdValue 名义金额开多空篮子
type OrderPayload struct {
	Slippage      float64             `json:"slippage"`
	ExecutionType string              `json:"executionType"`
	Leverage      float64             `json:"leverage"`
	USDValue      float64             `json:"usdValue"`
	LongAssets    []model.AssetWeight `json:"longAssets"`
	ShortAssets   []model.AssetWeight `json:"shortAssets"`
}

// Fill is one execution entry in a venue order response.
type Fill struct {
	Symbol   string `json:"symbol"`
	Size     string `json:"size"`
	Price    string `json:"price"`
	Side     string `json:"side"`
	TradeID  string `json:"trade_id"`
	ClosedAt int64  `json:"closed_at,omitempty"`
}

// OrderResult keeps the raw venue body alongside the parsed fills so the
// trade record can persist the response verbatim.
type OrderResult struct {
	Raw   json.RawMessage
	Fills []Fill
}

// Filled 仅当响应里至少有一条非空 fill 时才算成交
// HTTP 成功但 fills 为空是 “已受理未成交”，记为软失败
func (r *OrderResult) Filled() bool {
	for _, f := range r.Fills {
		if f != (Fill{}) {
			return true
		}
	}
	return false
}

type metaEntry struct {
	Symbol      string  `json:"symbol"`
	MarkPrice   float64 `json:"mark_price,string"`
	SzDecimals  int     `json:"sz_decimals"`
	MaxLeverage float64 `json:"max_leverage"`
}

// Client talks to the trading venue's REST API. It performs no retries;
// retry decisions belong to the caller.
type Client struct {
	baseURL     string
	minOrderUSD float64
	httpClient  *http.Client
}

func NewClient(cfg config.VenueConfig) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		minOrderUSD: cfg.MinOrderUSD,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: cfg.Timeout(),
		},
	}
}

// FetchAssetMetadata pulls the bulk per-symbol metadata used for
// minimum-size checks. The per-symbol minimum order size is the venue's flat
// notional floor; it is a per-position constraint and is never divided by
// leverage.
func (c *Client) FetchAssetMetadata(ctx context.Context) (map[string]AssetInfo, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/info/meta", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("venue metadata fetch failed: %w", err)
	}
	defer resp.Body.Close()
	metrics.VenueLatency.WithLabelValues("meta").Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("venue metadata fetch: unexpected status %d", resp.StatusCode)
	}

	var entries []metaEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("venue metadata decode: %w", err)
	}

	out := make(map[string]AssetInfo, len(entries))
	for _, e := range entries {
		if e.Symbol == "" || e.MarkPrice <= 0 {
			continue
		}
		out[e.Symbol] = AssetInfo{
			Symbol:      e.Symbol,
			Price:       e.MarkPrice,
			SzDecimals:  e.SzDecimals,
			MaxLeverage: e.MaxLeverage,
			MinOrderUSD: c.minOrderUSD,
		}
	}
	return out, nil
}

// PlaceOrder submits an approved order under the account's delegated
// credential. A transport/HTTP error is a hard failure; a 200 with no fills
// is a soft failure and is reported via OrderResult.Filled(), not as error.
func (c *Client) PlaceOrder(ctx context.Context, cred *model.DelegatedCredential, payload OrderPayload) (*OrderResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/exchange/order", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cred.Token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("venue order call failed: %w", err)
	}
	defer resp.Body.Close()
	metrics.VenueLatency.WithLabelValues("order").Observe(time.Since(start).Seconds())

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("venue order response read: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("venue order rejected: status %d: %s", resp.StatusCode, truncate(raw, 256))
	}

	var parsed struct {
		Fills []Fill `json:"fills"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("venue order response decode: %w", err)
	}

	return &OrderResult{Raw: raw, Fills: parsed.Fills}, nil
}

// ActivationStatus reports whether the delegated credential has been
// activated on the venue. Activation itself happens outside this core.
func (c *Client) ActivationStatus(ctx context.Context, cred *model.DelegatedCredential) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/agent/status", nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("venue activation check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("venue activation check: unexpected status %d", resp.StatusCode)
	}

	var parsed struct {
		Activated bool `json:"activated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, err
	}
	return parsed.Activated, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
