package config

import (
	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/beaconhq/beacon/pkg/logger"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logger    logger.Config   `yaml:"logger"`
	Crypto    CryptoConfig    `yaml:"crypto"`
	Platform  PlatformConfig  `yaml:"platform"`
	Publisher PublisherConfig `yaml:"publisher"`
	Campaigns CampaignsConfig `yaml:"campaigns"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	Mode     string `yaml:"mode"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"timezone"`
}

// CryptoConfig carries the process-wide secret used to decrypt stored
// platform tokens. Key is hex-encoded and must decode to 32 bytes.
type CryptoConfig struct {
	Key string `yaml:"key"`
}

type PlatformConfig struct {
	GraphBaseURL     string `yaml:"graph_base_url"`
	MessagingBaseURL string `yaml:"messaging_base_url"`
	APIVersion       string `yaml:"api_version"`
	RequestTimeout   string `yaml:"request_timeout"`
}

type PublisherConfig struct {
	PollInterval string `yaml:"poll_interval"`
	BatchSize    int    `yaml:"batch_size"`
	Enabled      bool   `yaml:"enabled"`
}

type CampaignsConfig struct {
	PollInterval string `yaml:"poll_interval"`
	Enabled      bool   `yaml:"enabled"`
}

type BroadcastConfig struct {
	SendDelay     string `yaml:"send_delay"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// ApplyDefaults fills zero values with the defaults the server assumes.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5410
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.TimeZone == "" {
		cfg.Database.TimeZone = "UTC"
	}
	if cfg.Platform.GraphBaseURL == "" {
		cfg.Platform.GraphBaseURL = "https://graph.facebook.com"
	}
	if cfg.Platform.MessagingBaseURL == "" {
		cfg.Platform.MessagingBaseURL = "https://graph.facebook.com"
	}
	if cfg.Platform.APIVersion == "" {
		cfg.Platform.APIVersion = "v19.0"
	}
	if cfg.Platform.RequestTimeout == "" {
		cfg.Platform.RequestTimeout = "60s"
	}
	if cfg.Publisher.PollInterval == "" {
		cfg.Publisher.PollInterval = "60s"
	}
	if cfg.Publisher.BatchSize == 0 {
		cfg.Publisher.BatchSize = 50
	}
	if !cfg.Publisher.Enabled {
		cfg.Publisher.Enabled = true
	}
	if cfg.Campaigns.PollInterval == "" {
		cfg.Campaigns.PollInterval = "60s"
	}
	if !cfg.Campaigns.Enabled {
		cfg.Campaigns.Enabled = true
	}
	if cfg.Broadcast.SendDelay == "" {
		cfg.Broadcast.SendDelay = "1s"
	}
	if cfg.Broadcast.MaxConcurrent == 0 {
		cfg.Broadcast.MaxConcurrent = 8
	}
}
