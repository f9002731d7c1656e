// Package config builds the application configuration once at start-up from wbf-config
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/UnendingLoop/Dehazer/internal/model"
	wbfconfig "github.com/wb-go/wbf/config"
)

const (
	DriverMinio = "minio"
	DriverS3    = "s3"

	ProcessorPassthrough = "passthrough"
	ProcessorNormalize   = "normalize"
	ProcessorRemote      = "remote"
)

type Config struct {
	AppPort  string
	GinMode  string
	LogLevel string

	Storage   StorageConfig
	Processor ProcessorConfig
	Kafka     KafkaConfig

	SamplePrefix  string
	DerivedPrefix string
	SampleCount   int
	FetchTimeout  time.Duration
	MaxImageBytes int64

	// адрес эндпоинта для клиентской части
	DehazeEndpoint string
}

type StorageConfig struct {
	Driver     string
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Region     string
	UseSSL     bool
	PublicBase string
	Bucket     string
}

type ProcessorConfig struct {
	Kind     string
	ModelURL string
	Timeout  time.Duration
}

type KafkaConfig struct {
	Broker string
	Topic  string
	// очередь асинхронных запросов на обработку
	RequestTopic string
	GroupID      string
}

// Getter is the subset of wbf-config used here.
type Getter interface {
	GetString(key string) string
}

// Load reads .env (if present) plus environment and builds Config.
func Load(envFiles ...string) (*Config, error) {
	c := wbfconfig.New()
	c.EnableEnv("")
	for _, f := range envFiles {
		if err := c.LoadEnvFiles(f); err != nil {
			return nil, fmt.Errorf("failed to load env file %q: %w", f, err)
		}
	}
	return FromGetter(c)
}

func FromGetter(g Getter) (*Config, error) {
	p := parser{g: g}

	cfg := &Config{
		AppPort:  p.str("APP_PORT", "8080"),
		GinMode:  p.str("GIN_MODE", "release"),
		LogLevel: p.str("LOG_LEVEL", "info"),
		Storage: StorageConfig{
			Driver:     strings.ToLower(p.str("STORAGE_DRIVER", DriverMinio)),
			Endpoint:   p.str("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKey:  p.str("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretKey:  p.str("STORAGE_SECRET_KEY", "minioadmin"),
			Region:     p.str("STORAGE_REGION", "us-east-1"),
			UseSSL:     p.boolean("STORAGE_USE_SSL", false),
			PublicBase: strings.TrimRight(p.str("STORAGE_PUBLIC_BASE", ""), "/"),
			Bucket:     p.str("BUCKET_NAME", "images"),
		},
		Processor: ProcessorConfig{
			Kind:     strings.ToLower(p.str("PROCESSOR", ProcessorPassthrough)),
			ModelURL: p.str("MODEL_URL", ""),
			Timeout:  p.duration("MODEL_TIMEOUT", 60*time.Second),
		},
		Kafka: KafkaConfig{
			Broker: p.str("KAFKA_BROKER", ""),
			Topic:  p.str("KAFKA_TOPIC", "dehazed-images"),

			RequestTopic: p.str("KAFKA_REQUEST_TOPIC", "dehaze-requests"),
			GroupID:      p.str("KAFKA_GROUPID", "dehaze-worker"),
		},
		SamplePrefix:   p.str("SAMPLE_PREFIX", model.SamplePrefix),
		DerivedPrefix:  p.str("DERIVED_PREFIX", "dehazed_"),
		SampleCount:    p.integer("SAMPLE_COUNT", 50),
		FetchTimeout:   p.duration("FETCH_TIMEOUT", 30*time.Second),
		MaxImageBytes:  int64(p.integer("MAX_IMAGE_BYTES", 32<<20)),
		DehazeEndpoint: p.str("DEHAZE_ENDPOINT", "http://localhost:8080/dehaze"),
	}

	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverMinio, DriverS3:
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}

	switch c.Processor.Kind {
	case ProcessorPassthrough, ProcessorNormalize:
	case ProcessorRemote:
		if c.Processor.ModelURL == "" {
			return fmt.Errorf("MODEL_URL is required for PROCESSOR=%s", ProcessorRemote)
		}
	default:
		return fmt.Errorf("unsupported PROCESSOR %q", c.Processor.Kind)
	}

	if c.Storage.Bucket == "" {
		return fmt.Errorf("BUCKET_NAME must not be empty")
	}
	if c.DerivedPrefix == "" {
		return fmt.Errorf("DERIVED_PREFIX must not be empty")
	}
	if c.SampleCount < 0 || c.MaxImageBytes <= 0 {
		return fmt.Errorf("SAMPLE_COUNT and MAX_IMAGE_BYTES must be positive")
	}
	return nil
}

// parser keeps the first conversion error so FromGetter can stay flat
type parser struct {
	g   Getter
	err error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.g.GetString(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) boolean(key string, def bool) bool {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid value %q for %s: %w", raw, key, err)
	}
}
