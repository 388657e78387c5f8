// Package binance is a minimal Binance spot REST client covering the calls
// the trading core needs: quotes, symbol filters, the free balance, and
// market orders. It implements market.Data, balance.ExchangeClient and
// execution.OrderClient.
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"trading-intelligence/internal/market"
)

// ErrNoCredentials is returned by signed endpoints when the client was built
// without an API key pair.
var ErrNoCredentials = errors.New("binance: API key/secret required")

// Config holds Binance credentials and endpoint selection.
type Config struct {
	APIKey     string
	APISecret  string
	Testnet    bool
	RecvWindow int64 // ms
}

// Client is a Binance spot REST client. Safe for concurrent use.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	mu       sync.Mutex
	lotSteps map[string]float64
}

// New builds a client against api.binance.com, or the spot testnet when
// cfg.Testnet is set.
func New(cfg Config) *Client {
	base := "https://api.binance.com"
	if cfg.Testnet {
		base = "https://testnet.binance.vision"
	}
	if cfg.RecvWindow == 0 {
		cfg.RecvWindow = 5000
	}
	return &Client{
		cfg:        cfg,
		baseURL:    base,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		// Spot allows 1200 request weight per minute; stay at 10 req/s.
		limiter:  rate.NewLimiter(rate.Limit(10), 20),
		lotSteps: make(map[string]float64),
	}
}

// CurrentPrice returns the latest traded price for symbol.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	body, err := c.doPublic(ctx, "/api/v3/ticker/price", params)
	if err != nil {
		return 0, err
	}
	var resp struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("decode ticker price: %w", err)
	}
	price, err := strconv.ParseFloat(resp.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", resp.Price, err)
	}
	return price, nil
}

// Ticker24h returns the rolling 24 hour statistics for symbol.
func (c *Client) Ticker24h(ctx context.Context, symbol string) (market.Ticker24h, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	body, err := c.doPublic(ctx, "/api/v3/ticker/24hr", params)
	if err != nil {
		return market.Ticker24h{}, err
	}
	var resp struct {
		Symbol             string `json:"symbol"`
		PriceChangePercent string `json:"priceChangePercent"`
		Volume             string `json:"volume"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return market.Ticker24h{}, fmt.Errorf("decode 24h ticker: %w", err)
	}
	change, err := strconv.ParseFloat(resp.PriceChangePercent, 64)
	if err != nil {
		return market.Ticker24h{}, fmt.Errorf("parse price change %q: %w", resp.PriceChangePercent, err)
	}
	volume, err := strconv.ParseFloat(resp.Volume, 64)
	if err != nil {
		return market.Ticker24h{}, fmt.Errorf("parse volume %q: %w", resp.Volume, err)
	}
	return market.Ticker24h{
		Symbol:             resp.Symbol,
		PriceChangePercent: change,
		Volume:             volume,
	}, nil
}

// LotStep returns the LOT_SIZE step for symbol. The symbol filters never
// change inside a session, so the result is cached.
func (c *Client) LotStep(ctx context.Context, symbol string) (float64, error) {
	c.mu.Lock()
	step, ok := c.lotSteps[symbol]
	c.mu.Unlock()
	if ok {
		return step, nil
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	body, err := c.doPublic(ctx, "/api/v3/exchangeInfo", params)
	if err != nil {
		return 0, err
	}
	var resp struct {
		Symbols []struct {
			Symbol  string `json:"symbol"`
			Filters []struct {
				FilterType string `json:"filterType"`
				StepSize   string `json:"stepSize"`
			} `json:"filters"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("decode exchange info: %w", err)
	}
	for _, s := range resp.Symbols {
		if s.Symbol != symbol {
			continue
		}
		for _, f := range s.Filters {
			if f.FilterType != "LOT_SIZE" {
				continue
			}
			step, err := strconv.ParseFloat(f.StepSize, 64)
			if err != nil {
				return 0, fmt.Errorf("parse step size %q: %w", f.StepSize, err)
			}
			c.mu.Lock()
			c.lotSteps[symbol] = step
			c.mu.Unlock()
			return step, nil
		}
	}
	return 0, fmt.Errorf("binance: no LOT_SIZE filter for %s", symbol)
}

// FreeBalance returns the free amount of asset in the spot account.
func (c *Client) FreeBalance(ctx context.Context, asset string) (float64, error) {
	body, err := c.doSigned(ctx, http.MethodGet, "/api/v3/account", url.Values{})
	if err != nil {
		return 0, err
	}
	var resp struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("decode account info: %w", err)
	}
	for _, b := range resp.Balances {
		if b.Asset != asset {
			continue
		}
		free, err := strconv.ParseFloat(b.Free, 64)
		if err != nil {
			return 0, fmt.Errorf("parse balance %q: %w", b.Free, err)
		}
		return free, nil
	}
	return 0, nil
}

// MarketBuy submits a market buy order and returns the exchange order id.
func (c *Client) MarketBuy(ctx context.Context, symbol string, qty float64) (string, error) {
	return c.marketOrder(ctx, symbol, "BUY", qty)
}

// MarketSell submits a market sell order and returns the exchange order id.
func (c *Client) MarketSell(ctx context.Context, symbol string, qty float64) (string, error) {
	return c.marketOrder(ctx, symbol, "SELL", qty)
}

func (c *Client) marketOrder(ctx context.Context, symbol, side string, qty float64) (string, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", "MARKET")
	params.Set("quantity", formatFloat(qty))
	body, err := c.doSigned(ctx, http.MethodPost, "/api/v3/order", params)
	if err != nil {
		return "", err
	}
	var resp struct {
		OrderID int64  `json:"orderId"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode order response: %w", err)
	}
	return strconv.FormatInt(resp.OrderID, 10), nil
}

func (c *Client) doPublic(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// doSigned stamps, signs and performs a request against a signed endpoint.
func (c *Client) doSigned(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return nil, ErrNoCredentials
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("recvWindow", strconv.FormatInt(c.cfg.RecvWindow, 10))
	params.Set("signature", sign(params.Encode(), c.cfg.APISecret))

	endpoint := c.baseURL + path
	encoded := params.Encode()

	var (
		req *http.Request
		err error
	)
	switch method {
	case http.MethodPost:
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	default:
		// GET/DELETE carry the signed params in the query string.
		req, err = http.NewRequestWithContext(ctx, method, endpoint+"?"+encoded, nil)
		if err != nil {
			return nil, err
		}
	}
	req.Header.Set("X-MBX-APIKEY", c.cfg.APIKey)
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("binance %s %s status %d: %s", req.Method, req.URL.Path, res.StatusCode, string(body))
	}
	return body, nil
}

func sign(data, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
