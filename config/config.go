package config

// Config contains all application settings
type Config struct {
	BindPort      int    `mapstructure:"PORT" yaml:"port"`
	BindHost      string `mapstructure:"HOST" yaml:"host"`
	DatabaseURL   string `mapstructure:"DATABASE_URL" yaml:"database_url"`
	NATSServerURL string `mapstructure:"NATS_URL" yaml:"nats_url"`

	// Control channel settings. Values are seconds. The per-endpoint
	// inventory row takes precedence over these defaults.
	SessionTimeout int `mapstructure:"SESSION_TIMEOUT" yaml:"session_timeout"`
	PingInterval   int `mapstructure:"PING_INTERVAL" yaml:"ping_interval"`
	ReconnectDelay int `mapstructure:"RECONNECT_DELAY" yaml:"reconnect_delay"`

	// Remote desktop settings
	RemoteIdleTimeout int `mapstructure:"REMOTE_IDLE_TIMEOUT" yaml:"remote_idle_timeout"`

	// Correlated request settings
	RequestTimeout int `mapstructure:"REQUEST_TIMEOUT" yaml:"request_timeout"`

	// Version
	BuildVersion string `yaml:"-"`
	BuildHash    string `yaml:"-"`
	BuildTime    string `yaml:"-"`
}
