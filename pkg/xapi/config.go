package xapi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/omochice/xapi/internal/ratelimit"
	"github.com/omochice/xapi/pkg/conn"
)

const (
	// DefaultHost is the public xAPI endpoint.
	DefaultHost = "ws.xtb.com"

	// AccountReal and AccountDemo are the account types the server knows.
	AccountReal = "real"
	AccountDemo = "demo"
)

// Config holds everything needed to open a Client.
type Config struct {
	Host        string
	AccountType string
	AccountID   string
	Password    string
	AppName     string

	// Safe rejects trading commands locally.
	Safe bool

	HeartbeatPeriod  time.Duration
	HandshakeTimeout time.Duration
	MinSpacing       time.Duration
	BurstAllowance   int
}

// DefaultConfig returns a Config for a real account on the public host.
func DefaultConfig() Config {
	return Config{
		Host:             DefaultHost,
		AccountType:      AccountReal,
		HeartbeatPeriod:  conn.DefaultHeartbeatPeriod,
		HandshakeTimeout: conn.DefaultHandshakeTimeout,
		MinSpacing:       ratelimit.DefaultSpacing,
		BurstAllowance:   ratelimit.DefaultBurst,
	}
}

type fileConfig struct {
	Host             string `toml:"host"`
	Type             string `toml:"type"`
	AccountID        string `toml:"account_id"`
	Password         string `toml:"password"`
	AppName          string `toml:"app_name"`
	Safe             bool   `toml:"safe"`
	Heartbeat        string `toml:"heartbeat"`
	HandshakeTimeout string `toml:"handshake_timeout"`
	MinSpacing       string `toml:"min_spacing"`
	BurstAllowance   int    `toml:"burst_allowance"`
}

// LoadConfig reads a TOML file over DefaultConfig. Keys missing from the
// file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load xapi config: %w", err)
	}

	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("type") {
		cfg.AccountType = strings.TrimSpace(raw.Type)
	}
	if meta.IsDefined("account_id") {
		cfg.AccountID = strings.TrimSpace(raw.AccountID)
	}
	if meta.IsDefined("password") {
		cfg.Password = raw.Password
	}
	if meta.IsDefined("app_name") {
		cfg.AppName = strings.TrimSpace(raw.AppName)
	}
	if meta.IsDefined("safe") {
		cfg.Safe = raw.Safe
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"heartbeat", raw.Heartbeat, &cfg.HeartbeatPeriod},
		{"handshake_timeout", raw.HandshakeTimeout, &cfg.HandshakeTimeout},
		{"min_spacing", raw.MinSpacing, &cfg.MinSpacing},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if meta.IsDefined("burst_allowance") {
		cfg.BurstAllowance = raw.BurstAllowance
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid xapi config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	switch {
	case c.Host == "":
		return errors.New("host is required")
	case c.AccountType == "":
		return errors.New("account type is required")
	case c.HeartbeatPeriod < 0 || c.HandshakeTimeout < 0 || c.MinSpacing < 0:
		return errors.New("durations must not be negative")
	case c.BurstAllowance < 0:
		return errors.New("burst allowance must not be negative")
	}
	return nil
}

// SocketURL is the address of the command session. A host without a scheme
// is reached over wss.
func (c Config) SocketURL() string {
	return c.baseURL() + "/" + c.AccountType
}

// StreamURL is the address of the stream session.
func (c Config) StreamURL() string {
	return c.SocketURL() + "Stream"
}

func (c Config) baseURL() string {
	host := strings.TrimRight(c.Host, "/")
	if !strings.Contains(host, "://") {
		host = "wss://" + host
	}
	return host
}

// ConnOptions translates the tuning settings into connection options.
// Zero values leave the connection defaults in place.
func (c Config) ConnOptions() []conn.Option {
	return []conn.Option{
		conn.WithHeartbeatPeriod(c.HeartbeatPeriod),
		conn.WithHandshakeTimeout(c.HandshakeTimeout),
		conn.WithMinSpacing(c.MinSpacing),
		conn.WithBurstAllowance(c.BurstAllowance),
	}
}
