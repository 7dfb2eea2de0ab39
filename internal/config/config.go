package config

import (
	"errors"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// ErrMissingCredential: ключ OpenAI не задан ни в .env, ни в окружении, ни флагом.
var ErrMissingCredential = errors.New("openai api key is not configured")

type Config struct {
	DebugMode bool `env:"DEBUG_MODE"` //Режим дебага

	OpenAI OpenAIConfig
	HTTP   HTTPConfig

	// Таймаут одного запроса к модели. 0 отключает таймаут (остаётся только контекст вызывающего).
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// OpenAIConfig параметры доступа к API модели.
type OpenAIConfig struct {
	APIKey  string `env:"OPENAI_API_KEY"`  // Единственный обязательный секрет
	BaseURL string `env:"OPENAI_BASE_URL"` // Если пусто, используется официальный endpoint
}

// HTTPConfig конфигурация HTTP-сервера с формой анализа.
type HTTPConfig struct {
	BindAddr       string `env:"HTTP_BIND_ADDR"`   // Адрес слушателя, напр. 127.0.0.1:8080
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES"` // Максимальный размер загружаемого изображения
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode:      false,
		RequestTimeout: 60 * time.Second,
		HTTP: HTTPConfig{
			BindAddr:       "127.0.0.1:8080",
			MaxUploadBytes: 10 * 1024 * 1024,
		},
	}
}

// NewConfig загружает конфигурацию приложения из .env, окружения и флагов командной строки.
func NewConfig() *Config {
	cfg, err := Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		// flag.ExitOnError уже завершил процесс при ошибке флагов, сюда попадаем только с ошибкой env
		panic(err)
	}
	return cfg
}

// Parse собирает конфигурацию: дефолты → .env → окружение → флаги из args.
func Parse(fs *flag.FlagSet, args []string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	fs.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага (development-логгер)")
	fs.StringVar(&cfg.OpenAI.APIKey, "openai-api-key", cfg.OpenAI.APIKey, "API ключ OpenAI (перекрывает ENV OPENAI_API_KEY)")
	fs.StringVar(&cfg.OpenAI.BaseURL, "openai-base-url", cfg.OpenAI.BaseURL, "базовый URL API (пусто: официальный)")
	fs.StringVar(&cfg.HTTP.BindAddr, "http-bind-addr", cfg.HTTP.BindAddr, "адрес HTTP-сервера (напр. 127.0.0.1:8080)")
	fs.Int64Var(&cfg.HTTP.MaxUploadBytes, "max-upload-bytes", cfg.HTTP.MaxUploadBytes, "максимальный размер изображения в байтах")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "таймаут запроса к модели, напр. 60s; 0 отключает таймаут")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.OpenAI.APIKey = strings.TrimSpace(cfg.OpenAI.APIKey)
	if cfg.HTTP.MaxUploadBytes <= 0 {
		cfg.HTTP.MaxUploadBytes = Defaults().HTTP.MaxUploadBytes
	}
	if cfg.RequestTimeout < 0 {
		cfg.RequestTimeout = 0
	}
	return cfg, nil
}

// HasCredential сообщает, задан ли ключ API.
func (c *Config) HasCredential() bool {
	return c != nil && c.OpenAI.APIKey != ""
}

// Validate возвращает ErrMissingCredential, если ключ не задан.
func (c *Config) Validate() error {
	if !c.HasCredential() {
		return ErrMissingCredential
	}
	return nil
}
