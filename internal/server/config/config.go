// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the vulnreg server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the HTTP endpoint.
//   - CredentialFile: path of the administrator credential file.
//   - DatabaseDSN: SQLite database path (modernc driver).
//   - BcryptCost: work factor for password hashing.
//   - ShutdownTimeout: grace period for in-flight requests on shutdown.
type Config struct {
	EndpointAddrHTTP string
	CredentialFile   string
	DatabaseDSN      string
	BcryptCost       int
	ShutdownTimeout  time.Duration
}

// LoadDefaults populates Config with sensible development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.CredentialFile = "credentials.json"
	c.DatabaseDSN = "registry.db"
	c.BcryptCost = 0 // 0 lets the hasher fall back to the bcrypt default
	c.ShutdownTimeout = 5 * time.Second
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
