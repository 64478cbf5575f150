package models

// MConfig Structure
type MConfig struct {
	Name     string         `yaml:"name"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	LogLevel string         `yaml:"log_level"`
	Backend  MBackendConfig `yaml:"backend"`
	Stream   MStreamConfig  `yaml:"stream"`
	Storage  MStorageConfig `yaml:"storage"`
	Bus      MBusConfig     `yaml:"bus"`
	Watch    MWatchConfig   `yaml:"watch"`
}

type MBackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	RequestTimeout int    `yaml:"timeout"`
	RefreshPath    string `yaml:"refresh_path"`
	CacheTTL       int    `yaml:"cache_ttl_seconds"`
}

// Transport-error policy values for MStreamConfig.OnTransportError.
const (
	PolicyTrustBuiltinRetry = "trust-builtin-retry"
	PolicyForceReconnect    = "force-reconnect-with-backoff"
)

type MStreamConfig struct {
	Path                string `yaml:"path"`
	HeartbeatTimeout    int    `yaml:"heartbeat_timeout_seconds"`
	OnTransportError    string `yaml:"on_transport_error"`
	ReconnectMaxRetries int    `yaml:"reconnect_max_retries"`
	ReconnectBaseDelay  int    `yaml:"reconnect_base_delay_seconds"`
	HistoryDepth        int    `yaml:"history_depth"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionDays      int    `yaml:"data_retention_days"`
}

type MBusConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type MWatchConfig struct {
	BaseAssets      []string `yaml:"base_assets"`
	PreferredQuotes []string `yaml:"preferred_quotes"`
}
