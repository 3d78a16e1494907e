package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type TradeClientConfig struct {
	Env          string `yaml:"env"`
	Party        string `yaml:"party" env-default:"buyer"`
	HTTPServer   `yaml:"http_server"`
	OrderService `yaml:"order-service"`
	KafkaService `yaml:"kafka-service"`
	JournalDB    `yaml:"journal_db"`
	SyncConfig   `yaml:"sync"`
	LogConfig    `yaml:"log_config"`
}

type HTTPServer struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type OrderService struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type KafkaService struct {
	Host    string `yaml:"host"`
	Port    string `yaml:"port"`
	Topic   string `yaml:"topic" env-default:"trade-events"`
	GroupID string `yaml:"group_id" env-default:"trade-client"`
}

type JournalDB struct {
	Dsn            string `yaml:"dsn"`
	MigrationsPath string `yaml:"migrations_path"`
}

type SyncConfig struct {
	BaseInterval  time.Duration `yaml:"base_interval" env-default:"15s"`
	MinSpacing    time.Duration `yaml:"min_spacing" env-default:"10s"`
	MaxInterval   time.Duration `yaml:"max_interval" env-default:"60s"`
	BackoffFactor float64       `yaml:"backoff_factor" env-default:"1.5"`
	PollTimeout   time.Duration `yaml:"poll_timeout" env-default:"5s"`
}

type LogConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogOutput string `yaml:"log_output"`
}

func MustLoad() *TradeClientConfig {

	// Processing env config variable and file
	configPath := os.Getenv("TRADE_CLIENT_CONFIG_PATH")

	if configPath == "" {
		log.Fatalf("TRADE_CLIENT_CONFIG_PATH was not found\n")
	}

	if _, err := os.Stat(configPath); err != nil {
		log.Fatalf("failed to find config file: %v\n", err)
	}

	// YAML to struct object
	var cfg TradeClientConfig
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	return &cfg
}
