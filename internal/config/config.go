package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Config хранит параметры клиента и мок-сервера
type Config struct {
	RPC     RPCConfig     `yaml:"rpc"`
	Account AccountConfig `yaml:"account"`
	Journal JournalConfig `yaml:"journal"`
	Mock    MockConfig    `yaml:"mock"`
}

// RPCConfig - куда и как ходим
type RPCConfig struct {
	Endpoint   string `yaml:"endpoint"`
	TimeoutSec int    `yaml:"timeoutSec"`
}

// AccountConfig - от чьего имени ходим
type AccountConfig struct {
	// Handle непрозрачный идентификатор аккаунта
	Handle string `yaml:"handle"`
	// Secret общий ключ для подписи bearer-токенов
	Secret   string `yaml:"secret"`
	TokenTTL int    `yaml:"tokenTtlSec"`
}

// JournalConfig - журнал отправленных команд (для восстановления nonce)
type JournalConfig struct {
	Path string `yaml:"path"`
}

// MockConfig - настройки мок-сервера
type MockConfig struct {
	Port int `yaml:"port"`
	// Monsters сколько монстров в стартовом состоянии
	Monsters int `yaml:"monsters"`
}

// EnvConfigPath - переменная с путем к YAML
const EnvConfigPath = "AUTOCOMBAT_CONFIG"

// Default возвращает конфиг по умолчанию
func Default() *Config {
	return &Config{
		RPC: RPCConfig{
			Endpoint:   "http://localhost:3000",
			TimeoutSec: 10,
		},
		Account: AccountConfig{
			Handle:   "1234",
			Secret:   "autocombat-dev-secret",
			TokenTTL: 3600,
		},
		Journal: JournalConfig{
			Path: "",
		},
		Mock: MockConfig{
			Port:     3000,
			Monsters: 3,
		},
	}
}

// Load: дефолты -> файл (path или $AUTOCOMBAT_CONFIG) -> переменные окружения -> валидация.
// Пустой path и пустая переменная - работаем на дефолтах.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg, os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup("AUTOCOMBAT_ENDPOINT"); ok && v != "" {
		cfg.RPC.Endpoint = v
	}
	if v, ok := lookup("AUTOCOMBAT_ACCOUNT"); ok && v != "" {
		cfg.Account.Handle = v
	}
	if v, ok := lookup("AUTOCOMBAT_SECRET"); ok && v != "" {
		cfg.Account.Secret = v
	}
	if v, ok := lookup("AUTOCOMBAT_JOURNAL"); ok {
		cfg.Journal.Path = v
	}
	if v, ok := lookup("MOCK_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Mock.Port = port
		}
	}
}

// Validate проверяет значения после всех переопределений
func (c *Config) Validate() error {
	u, err := url.Parse(c.RPC.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("rpc.endpoint must be an http(s) URL, got %q", c.RPC.Endpoint)
	}
	if c.RPC.TimeoutSec <= 0 {
		return errors.New("rpc.timeoutSec must be positive")
	}
	if c.Account.Secret == "" {
		return errors.New("account.secret is required")
	}
	if c.Account.TokenTTL <= 0 {
		return errors.New("account.tokenTtlSec must be positive")
	}
	if c.Mock.Port < 0 || c.Mock.Port > 65535 {
		return fmt.Errorf("mock.port out of range: %d", c.Mock.Port)
	}
	if c.Mock.Monsters < 0 {
		return errors.New("mock.monsters must not be negative")
	}
	return nil
}

// Timeout - таймаут одного RPC-запроса
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RPC.TimeoutSec) * time.Second
}

// TokenTTL - время жизни bearer-токена
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Account.TokenTTL) * time.Second
}
