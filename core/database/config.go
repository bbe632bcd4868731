// Package database opens the Postgres pool and applies embedded migrations.
package database

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds Postgres connection settings. An empty host or name
// disables the database.
type Config struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS" validate:"gte=0"`
	// WaitSeconds bounds how long Connect keeps retrying a server that is
	// still starting.
	WaitSeconds int `yaml:"wait_seconds" envconfig:"DB_WAIT_SECONDS" validate:"gte=0"`
}

const (
	defaultPool = 10
	defaultWait = 30 * time.Second
)

// Enabled reports whether a database is configured.
func (c Config) Enabled() bool {
	return c.Host != "" && c.Name != ""
}

// KeywordDSN renders the lib/pq key=value connection string.
func (c Config) KeywordDSN() string {
	return fmt.Sprintf("user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		c.User, c.Password, c.Host, c.port(), c.Name, c.sslMode())
}

// URL renders the postgres:// form golang-migrate expects.
func (c Config) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.port(),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.sslMode()}}.Encode(),
	}
	return u.String()
}

func (c Config) port() string {
	if c.Port == "" {
		return "5432"
	}
	return c.Port
}

func (c Config) sslMode() string {
	if c.SSLMode == "" {
		return "disable"
	}
	return c.SSLMode
}

func (c Config) pool() int {
	if c.MaxConnections > 0 {
		return c.MaxConnections
	}
	return defaultPool
}

func (c Config) wait() time.Duration {
	if c.WaitSeconds > 0 {
		return time.Duration(c.WaitSeconds) * time.Second
	}
	return defaultWait
}
