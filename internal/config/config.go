package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string    `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string    `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string    `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	Redis      Redis     `yaml:"redis"`
	Storage    Storage   `yaml:"storage"`
	Rooms      Rooms     `yaml:"rooms"`
	Archive    Archive   `yaml:"archive"`
	WebSocket  WebSocket `yaml:"websocket"`
	Matches    Matches   `yaml:"matches"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Storage struct {
	Driver      string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"sqlite"`
	SQLitePath  string `yaml:"sqlite-path" env:"SQLITE_PATH" env-default:"./renju.db"`
	PostgresURL string `yaml:"postgres-url" env:"POSTGRES_URL"`
}

type Rooms struct {
	FinishedTTL   time.Duration `yaml:"finished-ttl" env-default:"30m"`
	IdleTTL       time.Duration `yaml:"idle-ttl" env-default:"2h"`
	SweepInterval time.Duration `yaml:"sweep-interval" env-default:"1m"`
	SnapshotTTL   time.Duration `yaml:"snapshot-ttl" env-default:"24h"`
}

type Archive struct {
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
}

type WebSocket struct {
	SendBuffer     int           `yaml:"send-buffer" env-default:"32"`
	WriteTimeout   time.Duration `yaml:"write-timeout" env-default:"10s"`
	PongTimeout    time.Duration `yaml:"pong-timeout" env-default:"60s"`
	AllowedOrigins []string      `yaml:"allowed-origins" env:"ALLOWED_ORIGINS" env-default:"*"`
}

type Matches struct {
	PageSize    int `yaml:"page-size" env-default:"20"`
	MaxPageSize int `yaml:"max-page-size" env-default:"100"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
