package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	Auth struct {
		Secret        string `yaml:"secret"`
		TokenTTL      int    `yaml:"token_ttl"`       // bearer token lifetime, seconds
		ResetTokenTTL int    `yaml:"reset_token_ttl"` // password-reset token lifetime, seconds
	} `yaml:"auth"`

	Email struct {
		SMTPHost     string   `yaml:"smtp_host"`
		SMTPPort     int      `yaml:"smtp_port"`
		SMTPUsername string   `yaml:"smtp_user"`
		SMTPPassword string   `yaml:"smtp_password"`
		FromEmail    string   `yaml:"from_email"`
		FromName     string   `yaml:"from_name"`
		Admins       []string `yaml:"admins"`
	} `yaml:"email"`

	Search struct {
		// Empty URL disables search entirely; the app runs without it.
		ElasticsearchURL string `yaml:"elasticsearch_url"`
	} `yaml:"search"`

	App struct {
		BaseURL      string   `yaml:"base_url"`
		PostsPerPage int      `yaml:"posts_per_page"`
		Languages    []string `yaml:"languages"`
	} `yaml:"app"`
}

var AppConfig *Config

// LoadConfig reads config/config.yaml (or CONFIG_PATH) and then applies
// environment overrides. When DATABASE_URL is set the file is optional,
// which is how tests and container deployments run.
func LoadConfig() {
	var cfg Config

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	if f, err := os.Open(configPath); err == nil {
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			f.Close()
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}
		f.Close()
	} else if os.Getenv("DATABASE_URL") == "" {
		log.Fatalf("Failed to open config file at %s: %v", configPath, err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	AppConfig = &cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("ELASTICSEARCH_URL"); v != "" {
		cfg.Search.ElasticsearchURL = v
	}
	if v := os.Getenv("SERVER_ENV"); v != "" {
		cfg.Server.Env = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		cfg.Server.Port, _ = strconv.Atoi(v)
	}
	if v := os.Getenv("MAIL_SERVER"); v != "" {
		cfg.Email.SMTPHost = v
	}
	if v := os.Getenv("MAIL_PORT"); v != "" {
		cfg.Email.SMTPPort, _ = strconv.Atoi(v)
	}
	if v := os.Getenv("MAIL_USERNAME"); v != "" {
		cfg.Email.SMTPUsername = v
	}
	if v := os.Getenv("MAIL_PASSWORD"); v != "" {
		cfg.Email.SMTPPassword = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Env == "" {
		cfg.Server.Env = "development"
	}
	if cfg.Auth.Secret == "" {
		cfg.Auth.Secret = "secret"
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 3600
	}
	if cfg.Auth.ResetTokenTTL == 0 {
		cfg.Auth.ResetTokenTTL = 600
	}
	if cfg.App.PostsPerPage == 0 {
		cfg.App.PostsPerPage = 10
	}
	if len(cfg.App.Languages) == 0 {
		cfg.App.Languages = []string{"en", "es"}
	}
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
