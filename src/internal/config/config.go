package config

import (
	"encoding/hex"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Configuration struct {
	Logs     LogsSettings     `mapstructure:"logs"`
	App      Application      `mapstructure:"app"`
	Database Database         `mapstructure:"database"`
	Queue    QueueConfig      `mapstructure:"queue"`
	Redis    Redis            `mapstructure:"redis"`
	Security SecuritySettings `mapstructure:"security"`
	Server   ServerSettings   `mapstructure:"server"`
	Handoff  HandoffConfig    `mapstructure:"handoff"`
	Cache    CacheConfig      `mapstructure:"cache"`
	Sweeper  SweeperConfig    `mapstructure:"sweeper"`
}

type LogsSettings struct {
	Level            string `mapstructure:"level"`
	Path             string `mapstructure:"log-path"`
	EnableJSONOutput bool   `mapstructure:"enable-json-output"`
}

type Application struct {
	Name     string `mapstructure:"name"`
	Timeout  int    `mapstructure:"timeout"`
	Version  string `mapstructure:"version"`
	HostLink string `mapstructure:"host-link"`
}

type Database struct {
	Url                string `mapstructure:"url"`
	DbName             string `mapstructure:"dbname"`
	SessionCollection  string `mapstructure:"session-collection"`
	LoanCollection     string `mapstructure:"loan-collection"`
	ReferralCollection string `mapstructure:"referral-collection"`
	Timeout            int    `mapstructure:"timeout"`
}

type QueueConfig struct {
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
}

type RabbitMQConfig struct {
	Url            string `mapstructure:"url"`
	Exchange       string `mapstructure:"exchange"`
	ExchangeType   string `mapstructure:"exchange-type"`
	EventQueue     string `mapstructure:"event-queue"`
	PrefetchCount  int    `mapstructure:"prefetch-count"`
	ReconnectDelay int    `mapstructure:"reconnect-delay"`
	Timeout        int    `mapstructure:"timeout"`
	RoutingKey     string `mapstructure:"routing-key"`
	PrefetchSize   int    `mapstructure:"prefetch-size"`
	Global         bool   `mapstructure:"global"`
	Durable        bool   `mapstructure:"durable"`
	AutoDelete     bool   `mapstructure:"auto-delete"`
	Internal       bool   `mapstructure:"internal"`
	NoWait         bool   `mapstructure:"no-wait"`
	Exclusive      bool   `mapstructure:"exclusive"`
	AutoAck        bool   `mapstructure:"auto-ack"`
	NoLocal        bool   `mapstructure:"no-local"`
	Consumer       string `mapstructure:"consumer"`
}

type Redis struct {
	Url      string `mapstructure:"url"`
	Password string `mapstructure:"password"`
	Db       int    `mapstructure:"db"`
}

type SecuritySettings struct {
	// EncryptionKey is the hex-encoded 32-byte AES key. It must be supplied
	// externally and be identical across all instances so that sessions
	// written by one instance can be decrypted by another; Load refuses to
	// start without it.
	EncryptionKey        string `mapstructure:"encryption-key"`
	SigningSecret        string `mapstructure:"signing-secret"`
	CallbackTokenTTLMin  int    `mapstructure:"callback-token-ttl-minutes"`
	DefaultSessionTTLMin int    `mapstructure:"default-session-ttl-minutes"`

	encryptionKeyBytes []byte
}

type ServerSettings struct {
	Port         string `mapstructure:"port"`
	Mode         string `mapstructure:"mode"`
	ReadTimeout  int    `mapstructure:"read-timeout"`
	WriteTimeout int    `mapstructure:"write-timeout"`
	IdleTimeout  int    `mapstructure:"idle-timeout"`
}

// HandoffConfig holds the per-POS-system redirect contracts and the URLs
// this service hands back to POS applications.
type HandoffConfig struct {
	CallbackBaseUrl string               `mapstructure:"callback-base-url"`
	ReturnUrl       string               `mapstructure:"return-url"`
	PosSystems      map[string]PosSystem `mapstructure:"pos-systems"`
}

type PosSystem struct {
	SandboxUrl    string `mapstructure:"sandbox-url"`
	ProductionUrl string `mapstructure:"production-url"`
}

type CacheConfig struct {
	SessionViewExpirationMinutes int    `mapstructure:"session-view-expiration-minutes"`
	SweeperLockKey               string `mapstructure:"sweeper-lock-key"`
	SweeperLockTTLSeconds        int    `mapstructure:"sweeper-lock-ttl-seconds"`
}

type SweeperConfig struct {
	IntervalMinutes int  `mapstructure:"interval-minutes"`
	Enabled         bool `mapstructure:"enabled"`
}

// EncryptionKeyBytes returns the decoded AES key validated by Load.
func (s *SecuritySettings) EncryptionKeyBytes() []byte {
	return s.encryptionKeyBytes
}

func Load() *Configuration {
	cfg := read()
	logrus.Info("Configuration loaded")

	// Override with environment variables
	mongoUri := os.Getenv("MONGODB_URL")
	if mongoUri != "" {
		cfg.Database.Url = mongoUri
	}

	dbName := os.Getenv("DB_NAME")
	if dbName != "" {
		cfg.Database.DbName = dbName
	}

	redisUrl := os.Getenv("REDIS_URL")
	if redisUrl != "" {
		cfg.Redis.Url = redisUrl
	}

	redisDB := os.Getenv("REDIS_DB")
	if redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			cfg.Redis.Db = db
		}
	}

	rabbitmqUrl := os.Getenv("RABBITMQ_URL")
	if rabbitmqUrl != "" {
		cfg.Queue.RabbitMQ.Url = rabbitmqUrl
	}

	encryptionKey := os.Getenv("SESSION_ENCRYPTION_KEY")
	if encryptionKey != "" {
		cfg.Security.EncryptionKey = encryptionKey
	}

	signingSecret := os.Getenv("TOKEN_SIGNING_SECRET")
	if signingSecret != "" {
		cfg.Security.SigningSecret = signingSecret
	}

	ValidateSecurity(&cfg.Security)

	return cfg
}

// ValidateSecurity refuses to run with a missing or malformed key. The key
// is never generated here: a generated key would break decryption of every
// session issued before the restart.
func ValidateSecurity(sec *SecuritySettings) {
	if sec.EncryptionKey == "" {
		logrus.Panic("session encryption key is not configured")
	}

	key, err := hex.DecodeString(sec.EncryptionKey)
	if err != nil {
		logrus.Panicf("session encryption key is not valid hex: %v", err)
	}
	if len(key) != 32 {
		logrus.Panicf("session encryption key must be 32 bytes, got %d", len(key))
	}
	sec.encryptionKeyBytes = key

	if sec.SigningSecret == "" {
		logrus.Panic("token signing secret is not configured")
	}

	if sec.DefaultSessionTTLMin <= 0 {
		sec.DefaultSessionTTLMin = 60
	}
	if sec.CallbackTokenTTLMin <= 0 {
		sec.CallbackTokenTTLMin = 5
	}
}

func read() *Configuration {
	viper.SetConfigFile("src/internal/config/cfg.yml")
	viper.AutomaticEnv()
	viper.SetConfigType("yml")

	var config Configuration

	err := viper.ReadInConfig()
	if err != nil {
		logrus.Panicf("Error reading config file, %s", err)
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		logrus.Panicf("Error unmarshalling config file, %s", err)
	}

	return &config
}
