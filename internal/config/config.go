package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type DefaultsConfig struct {
	Currency string `yaml:"currency"`
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

func LoadConfig() *Config {
	f, err := os.Open("config/config.yaml")
	if err != nil {
		panic("Failed to open config.yaml: " + err.Error())
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		panic("Failed to parse config.yaml: " + err.Error())
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Defaults.Currency == "" {
		cfg.Defaults.Currency = "USD"
	}
	// секрет можно переопределить окружением, чтобы не хранить его в файле
	if v := os.Getenv("DEALDESK_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	return &cfg
}
