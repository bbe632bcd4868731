package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"

	coreconfig "github.com/m3rciful/exchangebot/core/config"
	coredatabase "github.com/m3rciful/exchangebot/core/database"
	"github.com/m3rciful/exchangebot/internal/exchange"
)

const (
	defaultQuoteTimeoutMS = 5000
	defaultETA            = "30-60 minutes"
)

// Config is the application configuration. The core section is inlined so
// telegram, webhook, logging, rate_limit and sender stay top-level keys.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Orders   OrdersConfig        `yaml:"orders"`
	Exchange ExchangeConfig      `yaml:"exchange"`
	Redis    RedisConfig         `yaml:"redis"`
	Metrics  MetricsConfig       `yaml:"metrics"`
}

// ErrNoOrderStore is returned when neither a database nor the development
// memory store is configured.
var ErrNoOrderStore = errors.New("database is required unless orders.memory_store is set")

// OrdersConfig selects where orders live.
type OrdersConfig struct {
	// MemoryStore keeps orders in process memory. Development only: orders
	// are lost on restart.
	MemoryStore bool `yaml:"memory_store" envconfig:"ORDERS_MEMORY_STORE"`
}

// UseMemoryStore reports whether orders should skip Postgres.
func (c *Config) UseMemoryStore() bool {
	return c.Orders.MemoryStore && !c.Database.Enabled()
}

// ExchangeConfig describes the offered currencies, pricing and payment details.
type ExchangeConfig struct {
	Crypto         []string          `yaml:"crypto" envconfig:"EXCHANGE_CRYPTO" validate:"omitempty,dive,oneof=USDT USDC SOL ETH"`
	Fiat           []string          `yaml:"fiat" envconfig:"EXCHANGE_FIAT" validate:"omitempty,dive,oneof=PLN TRY"`
	Bridge         string            `yaml:"bridge" envconfig:"EXCHANGE_BRIDGE" validate:"omitempty,oneof=EUR USDT USDC"`
	QuoteTimeoutMS int               `yaml:"quote_timeout_ms" envconfig:"EXCHANGE_QUOTE_TIMEOUT_MS" validate:"gte=0"`
	RateCacheTTLMS int               `yaml:"rate_cache_ttl_ms" envconfig:"EXCHANGE_RATE_CACHE_TTL_MS" validate:"gte=0"`
	PriceSource    PriceSourceConfig `yaml:"price_source"`
	FeeCodes       FeeCodesConfig    `yaml:"fee_codes"`
	ETA            ETAConfig         `yaml:"eta"`
	Deposit        DepositConfig     `yaml:"deposit"`
}

// PriceSourceConfig points at the public ticker API.
type PriceSourceConfig struct {
	BaseURL string `yaml:"base_url" envconfig:"PRICE_SOURCE_BASE_URL" validate:"omitempty,url"`
}

// FeeCodesConfig holds the secret discount codes. Keep them in env in production.
type FeeCodesConfig struct {
	Discount1  string `yaml:"discount_1" envconfig:"FEE_CODE_DISCOUNT_1"`
	Discount15 string `yaml:"discount_15" envconfig:"FEE_CODE_DISCOUNT_15" validate:"omitempty,nefield=Discount1"`
}

// ETAConfig maps routes like USDT_PLN to settlement estimates.
type ETAConfig struct {
	Default string            `yaml:"default" envconfig:"ETA_DEFAULT"`
	Routes  map[string]string `yaml:"routes" envconfig:"ETA_ROUTES"`
}

// DepositConfig is shown to users after an order is created.
type DepositConfig struct {
	Bank   BankDetails             `yaml:"bank"`
	Crypto map[string]CryptoWallet `yaml:"crypto" ignored:"true" validate:"omitempty,dive,keys,oneof=USDT USDC SOL ETH,endkeys"`
}

// BankDetails receive fiat transfers.
type BankDetails struct {
	Name   string `yaml:"name" envconfig:"DEPOSIT_BANK_NAME"`
	Holder string `yaml:"holder" envconfig:"DEPOSIT_BANK_HOLDER"`
	IBAN   string `yaml:"iban" envconfig:"DEPOSIT_BANK_IBAN"`
	SWIFT  string `yaml:"swift" envconfig:"DEPOSIT_BANK_SWIFT"`
	Hint   string `yaml:"hint" envconfig:"DEPOSIT_BANK_HINT"`
}

// CryptoWallet receives one crypto asset.
type CryptoWallet struct {
	Address string `yaml:"address" validate:"required"`
	Network string `yaml:"network"`
}

// RedisConfig enables the shared price cache when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB" validate:"gte=0"`
}

// Enabled reports whether a Redis server is configured.
func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.Addr) != "" }

// MetricsConfig enables the Prometheus listener when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN" validate:"omitempty,hostname_port"`
}

// Load reads .env (if present), the YAML file at path and the environment,
// then normalizes and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	ex := &c.Exchange
	if len(ex.Crypto) == 0 {
		ex.Crypto = []string{"USDT", "USDC", "SOL", "ETH"}
	}
	if len(ex.Fiat) == 0 {
		ex.Fiat = []string{"PLN", "TRY"}
	}
	for i := range ex.Crypto {
		ex.Crypto[i] = strings.ToUpper(strings.TrimSpace(ex.Crypto[i]))
	}
	for i := range ex.Fiat {
		ex.Fiat[i] = strings.ToUpper(strings.TrimSpace(ex.Fiat[i]))
	}
	ex.Bridge = strings.ToUpper(strings.TrimSpace(ex.Bridge))
	if ex.Bridge == "" {
		ex.Bridge = string(exchange.EUR)
	}
	if ex.QuoteTimeoutMS == 0 {
		ex.QuoteTimeoutMS = defaultQuoteTimeoutMS
	}
	if strings.TrimSpace(ex.ETA.Default) == "" {
		ex.ETA.Default = defaultETA
	}
	ex.FeeCodes.Discount1 = strings.TrimSpace(ex.FeeCodes.Discount1)
	ex.FeeCodes.Discount15 = strings.TrimSpace(ex.FeeCodes.Discount15)

	if err := coreconfig.Validate(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !c.Database.Enabled() && !c.Orders.MemoryStore {
		return fmt.Errorf("invalid config: %w", ErrNoOrderStore)
	}
	if _, err := c.ExchangeSettings(); err != nil {
		return fmt.Errorf("invalid exchange config: %w", err)
	}
	return nil
}

// ExchangeSettings resolves the exchange section into the value the core consumes.
func (c *Config) ExchangeSettings() (exchange.Settings, error) {
	ex := c.Exchange
	crypto, err := parseCurrencies(ex.Crypto, exchange.KindCrypto)
	if err != nil {
		return exchange.Settings{}, err
	}
	fiat, err := parseCurrencies(ex.Fiat, exchange.KindFiat)
	if err != nil {
		return exchange.Settings{}, err
	}
	bridge, err := exchange.ParseCurrency(ex.Bridge)
	if err != nil {
		return exchange.Settings{}, err
	}

	routes := make(map[string]string, len(ex.ETA.Routes))
	for k, v := range ex.ETA.Routes {
		routes[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return exchange.Settings{
		Crypto: crypto,
		Fiat:   fiat,
		Bridge: bridge,
		FeeCodes: exchange.FeeCodes{
			Discount1:  ex.FeeCodes.Discount1,
			Discount15: ex.FeeCodes.Discount15,
		},
		QuoteTimeout: time.Duration(ex.QuoteTimeoutMS) * time.Millisecond,
		ETA:          exchange.ETA{Default: ex.ETA.Default, Routes: routes},
	}, nil
}

// RateCacheTTL is zero when leg prices are not cached.
func (c *Config) RateCacheTTL() time.Duration {
	return time.Duration(c.Exchange.RateCacheTTLMS) * time.Millisecond
}

func parseCurrencies(raw []string, want exchange.Kind) ([]exchange.Currency, error) {
	out := make([]exchange.Currency, 0, len(raw))
	seen := make(map[exchange.Currency]struct{}, len(raw))
	for _, r := range raw {
		c, err := exchange.ParseCurrency(r)
		if err != nil {
			return nil, err
		}
		if c.Kind() != want {
			return nil, fmt.Errorf("%w: %s is not %s", exchange.ErrUnsupportedCurrency, c, want)
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}
