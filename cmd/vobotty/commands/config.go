package commands

import (
	"fmt"
	"time"

	"github.com/tanguc/vobotty/internal/notify"
	"github.com/tanguc/vobotty/internal/targets"
	configlibsql "github.com/tanguc/vobotty/lib/configuration/libsql"
)

type HttpConfig struct {
	// Timeout is a Go duration, ex. "30s".
	Timeout           string  `json:"timeout"`
	UserAgent         string  `json:"user_agent"`
	// RequestsPerSecond bounds every request of a run, all sessions included.
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
	CloudflareBypass  bool    `json:"cloudflare_bypass"`
}

type TunnelConfig struct {
	// Proxy is an http(s) or socks5(h) proxy URL, empty means direct.
	Proxy string `json:"proxy"`
	// Probe is a host:port dialed through a SOCKS proxy before starting.
	Probe        string `json:"probe"`
	ProbeTimeout string `json:"probe_timeout"`
}

type Config struct {
	// Database holds the accounts table, AccountsFile is a read-only
	// alternative.
	Database     configlibsql.Struct `json:"database"`
	AccountsFile string              `json:"accounts_file"`

	Concurrency int `json:"concurrency"`
	// Cooldown is the minimum time between two votes of an account, ex. "3h".
	Cooldown string `json:"cooldown"`

	Http   HttpConfig           `json:"http"`
	Tunnel TunnelConfig         `json:"tunnel"`
	Sites  []targets.SiteConfig `json:"sites"`
	Smtp   notify.SmtpConfig    `json:"smtp"`
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: %s must not be negative", field)
	}
	return d, nil
}

func (c Config) Validate() error {
	if c.AccountsFile == "" {
		err := c.Database.Validate()
		if err != nil {
			return fmt.Errorf("config: either database or accounts_file is required: %w", err)
		}
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("config: concurrency must not be negative")
	}
	_, err := parseDuration("cooldown", c.Cooldown, 0)
	if err != nil {
		return err
	}
	_, err = parseDuration("http.timeout", c.Http.Timeout, 0)
	if err != nil {
		return err
	}
	_, err = parseDuration("tunnel.probe_timeout", c.Tunnel.ProbeTimeout, 0)
	if err != nil {
		return err
	}
	return c.Smtp.Validate()
}

func (c Config) cooldown() time.Duration {
	d, _ := parseDuration("cooldown", c.Cooldown, 3*time.Hour)
	return d
}

func (c Config) httpTimeout() time.Duration {
	d, _ := parseDuration("http.timeout", c.Http.Timeout, 0)
	return d
}

func (c Config) probeTimeout() time.Duration {
	d, _ := parseDuration("tunnel.probe_timeout", c.Tunnel.ProbeTimeout, 0)
	return d
}
