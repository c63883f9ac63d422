package config

import "time"

// ServerConfig represents the configuration for the analysis transports
type ServerConfig struct {
	Transport         string
	ListenAddress     string
	SMTPListenAddress string
	UpstreamAddress   string
	UpstreamPort      int
	BlockOnRisk       bool
}

// HistoryConfig represents the configuration for the sender history store
type HistoryConfig struct {
	Type       string
	SQLitePath string
	MySQLDSN   string
}

// ReputationConfig represents the configuration for URL reputation lookups
type ReputationConfig struct {
	Enabled     bool
	APIKey      string
	Timeout     time.Duration
	MinInterval time.Duration
}

// GetServer returns the server configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		Transport:         c.GetString("server.transport"),
		ListenAddress:     c.GetString("server.listen_address"),
		SMTPListenAddress: c.GetString("server.smtp_listen_address"),
		UpstreamAddress:   c.GetString("server.upstream_address"),
		UpstreamPort:      c.GetInt("server.upstream_port"),
		BlockOnRisk:       c.GetBool("server.block_on_risk"),
	}
}

// GetHistory returns the sender history configuration
func (c *Config) GetHistory() HistoryConfig {
	return HistoryConfig{
		Type:       c.GetString("history.type"),
		SQLitePath: c.GetString("history.sqlite_path"),
		MySQLDSN:   c.GetString("history.mysql_dsn"),
	}
}

// GetReputation returns the URL reputation configuration. Invalid duration
// strings fall through as an error so misconfiguration fails at startup.
func (c *Config) GetReputation() (ReputationConfig, error) {
	timeout, err := c.GetDuration("reputation.timeout")
	if err != nil {
		return ReputationConfig{}, err
	}
	minInterval, err := c.GetDuration("reputation.min_interval")
	if err != nil {
		return ReputationConfig{}, err
	}
	return ReputationConfig{
		Enabled:     c.GetBool("reputation.enabled"),
		APIKey:      c.GetString("reputation.api_key"),
		Timeout:     timeout,
		MinInterval: minInterval,
	}, nil
}
