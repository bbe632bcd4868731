package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/exchangebot/core/logger"
	"github.com/m3rciful/exchangebot/core/telegram/netutil"
)

const (
	// DefaultBinanceURL is the public Binance spot API.
	DefaultBinanceURL = "https://api.binance.com"

	tickerPath = "/api/v3/ticker/price"

	// Binance answers 400 with this code for symbols it does not list.
	codeInvalidSymbol = -1121

	defaultDialTimeout     = 3 * time.Second
	defaultTLSHandshake    = 3 * time.Second
	defaultResponseTimeout = 5 * time.Second
	defaultIdleConnTimeout = 30 * time.Second
	maxBodyBytes           = 64 * 1024
)

type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// BinanceSource reads last prices from the Binance ticker endpoint.
type BinanceSource struct {
	baseURL string
	client  *http.Client
}

// NewBinanceSource creates a source for baseURL. An empty URL selects the public API.
func NewBinanceSource(baseURL string, client *http.Client) *BinanceSource {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBinanceURL
	}
	if client == nil {
		client = BuildHTTPClient()
	}
	return &BinanceSource{baseURL: baseURL, client: client}
}

// BuildHTTPClient returns a client with bounded dial/TLS/header timeouts.
// It never retries: a failed fetch is reported to the caller as is.
func BuildHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ResponseHeaderTimeout: defaultResponseTimeout,
	}
	return &http.Client{Transport: transport}
}

// Price implements PriceSource.
func (s *BinanceSource) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	endpoint := s.baseURL + tickerPath + "?" + url.Values{"symbol": {symbol}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: build request: %w", symbol, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		logger.Debug(ctx, logger.CompRates, "price.fetch",
			slog.String("status", "fail"),
			slog.String("symbol", symbol),
			slog.Bool("retryable", netutil.Transient(err)),
			slog.Duration("duration", time.Since(start)),
			slog.String("err", err.Error()),
		)
		return decimal.Zero, fmt.Errorf("%s: request: %w", symbol, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: read body: %w", symbol, err)
	}

	logger.Debug(ctx, logger.CompRates, "price.fetch",
		slog.String("status", "ok"),
		slog.String("symbol", symbol),
		slog.Int("http_code", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if resp.StatusCode == http.StatusBadRequest && json.Unmarshal(body, &apiErr) == nil && apiErr.Code == codeInvalidSymbol {
			return decimal.Zero, fmt.Errorf("%s: %w", symbol, ErrPairNotListed)
		}
		return decimal.Zero, fmt.Errorf("%s: unexpected status %s", symbol, resp.Status)
	}

	var ticker tickerResponse
	if err := json.Unmarshal(body, &ticker); err != nil {
		return decimal.Zero, fmt.Errorf("%s: decode: %w", symbol, err)
	}
	price, err := decimal.NewFromString(ticker.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: bad price %q: %w", symbol, ticker.Price, err)
	}
	return price, nil
}
