package config

import (
	"encoding/json"
	"log"
	"os"
)

type Config struct {
	Database DatabaseConfig `json:"database"`
	Auth     AuthConfig     `json:"auth"`
	Redis    RedisConfig    `json:"redis"`
	Kafka    KafkaConfig    `json:"kafka"`
	Chat     ChatConfig     `json:"chat"`
}

type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

type AuthConfig struct {
	JWTSecret     string `json:"jwt_secret"`
	TokenExpiry   int    `json:"token_expiry"`   // in hours
	RefreshExpiry int    `json:"refresh_expiry"` // in hours
	MaxAttempts   int    `json:"max_attempts"`   // failed logins before lockout
	LockoutSecs   int    `json:"lockout_secs"`   // lock duration in seconds
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

type KafkaConfig struct {
	Brokers  []string `json:"brokers"`
	GroupID  string   `json:"group_id"`
	Topic    string   `json:"topic"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	UseSCRAM bool     `json:"use_scram"`
	UseTLS   bool     `json:"use_tls"`
	CertFile string   `json:"cert_file"`
	KeyFile  string   `json:"key_file"`
	CAFile   string   `json:"ca_file"`
}

type ChatConfig struct {
	HourlyMessageLimit int `json:"hourly_message_limit"` // sends per room per hour
	SessionTTLHours    int `json:"session_ttl_hours"`
}

func LoadConfig() (config Config, err error) {
	file, err := os.Open("config/config.json")
	if err != nil {
		return config, err
	}
	defer func(file *os.File) {
		closeErr := file.Close()
		if closeErr != nil {
			log.Printf("Error closing config file: %v", closeErr)
		}
	}(file)
	decoder := json.NewDecoder(file)
	err = decoder.Decode(&config)
	if err != nil {
		return config, err
	}
	applyDefaults(&config)
	return config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Auth.MaxAttempts == 0 {
		cfg.Auth.MaxAttempts = 5
	}
	if cfg.Auth.LockoutSecs == 0 {
		cfg.Auth.LockoutSecs = 30
	}
	if cfg.Chat.HourlyMessageLimit == 0 {
		cfg.Chat.HourlyMessageLimit = 5
	}
	if cfg.Chat.SessionTTLHours == 0 {
		cfg.Chat.SessionTTLHours = 48
	}
}
