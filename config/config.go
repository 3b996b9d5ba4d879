// Package config loads artlens settings from YAML files and environment
// variables.
//
// Configuration can be loaded from:
//   - YAML configuration file
//   - Environment variables (override the file)
//   - Programmatic defaults
//
// Environment Variables:
//
//	ARTLENS_K                   - Number of clusters (default: 8)
//	ARTLENS_METRIC              - cosine or euclidean (default: cosine)
//	ARTLENS_MAX_ITERATIONS      - Refinement iteration limit (default: 100)
//	ARTLENS_SEED                - Initialization seed (default: 0)
//	ARTLENS_WORKERS             - Goroutines per stage, 0 = GOMAXPROCS
//	ARTLENS_TOP_N               - Labels kept per interpretation ranking, 0 = all
//	ARTLENS_MIN_SCORE           - Caption label threshold (default: 0.15)
//	ARTLENS_MAX_LABELS          - Labels per caption clause (default: 1)
//	ARTLENS_LOG_LEVEL           - debug, info, warn, error (default: info)
//	ARTLENS_LOG_FORMAT          - text or json (default: text)
//	ARTLENS_STORAGE_BACKEND     - memory, local, s3, minio, badger (default: local)
//	ARTLENS_STORAGE_PATH        - Directory for local and badger
//	ARTLENS_STORAGE_BUCKET      - Bucket for s3 and minio
//	ARTLENS_STORAGE_PREFIX      - Key prefix for s3 and minio
//	ARTLENS_STORAGE_REGION      - AWS region
//	ARTLENS_STORAGE_ENDPOINT    - Custom S3 or MinIO endpoint
//	ARTLENS_STORAGE_DDB_TABLE   - DynamoDB commit table for s3
//	ARTLENS_MINIO_ACCESS_KEY    - MinIO access key
//	ARTLENS_MINIO_SECRET_KEY    - MinIO secret key
//	ARTLENS_MINIO_SECURE        - Use HTTPS for MinIO
//	ARTLENS_CODEC               - json, go-json, msgpack (default: go-json)
//	ARTLENS_COMPRESSION         - none, lz4, zstd (default: zstd)
//	ARTLENS_MEMORY_LIMIT_BYTES  - Build memory budget, 0 = unlimited
//	ARTLENS_MAX_BUILDS          - Concurrent builds (default: 1)
//	ARTLENS_IO_LIMIT_BYTES      - Snapshot bytes per second, 0 = unlimited
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/hupe1980/artlens"
	"github.com/hupe1980/artlens/caption"
	"github.com/hupe1980/artlens/clustering"
	"github.com/hupe1980/artlens/codec"
	"github.com/hupe1980/artlens/distance"
	"github.com/hupe1980/artlens/model"
	"github.com/hupe1980/artlens/resource"
	"github.com/hupe1980/artlens/snapshot"
	"gopkg.in/yaml.v3"
)

// Config is the complete file/env configuration.
//
// Example:
//
//	// Load from YAML file, then apply environment overrides
//	cfg, err := config.LoadConfig("./artlens.yaml")
//	config.LoadFromEnv(cfg)
//
//	// Or use defaults
//	cfg := config.DefaultConfig()
type Config struct {
	Clustering ClusteringConfig `yaml:"clustering"`
	Interpret  InterpretConfig  `yaml:"interpret"`
	Caption    caption.Policy   `yaml:"caption"`
	Storage    StorageConfig    `yaml:"storage"`
	Resources  resource.Config  `yaml:"resources"`
	Log        LogConfig        `yaml:"log"`
}

// ClusteringConfig mirrors clustering.Config with a textual metric.
type ClusteringConfig struct {
	K             int    `yaml:"k"`
	Metric        string `yaml:"metric"`
	MaxIterations int    `yaml:"max_iterations"`
	Seed          int64  `yaml:"seed"`
	Workers       int    `yaml:"workers"`
}

// InterpretConfig controls the cluster interpreter.
type InterpretConfig struct {
	// TopN truncates each ranking; 0 keeps every label.
	TopN int `yaml:"top_n"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the library defaults with a local store under
// ./artlens-data.
func DefaultConfig() *Config {
	def := clustering.DefaultConfig()
	return &Config{
		Clustering: ClusteringConfig{
			K:             def.K,
			Metric:        def.Metric.String(),
			MaxIterations: def.MaxIterations,
			Seed:          def.Seed,
		},
		Caption: caption.DefaultPolicy(),
		Storage: StorageConfig{
			Backend:     BackendLocal,
			Path:        "./artlens-data",
			Codec:       codec.Default.Name(),
			Compression: snapshot.CompressionZSTD.String(),
		},
		Resources: resource.Config{MaxConcurrentBuilds: 1},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig. Keys missing from
// the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of DefaultConfig.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return cfg, nil
}

// Marshal encodes cfg as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// LoadFromEnv applies ARTLENS_* environment variables to cfg. Malformed
// numbers are reported as configuration errors.
func LoadFromEnv(cfg *Config) error {
	e := envReader{}

	e.int("ARTLENS_K", &cfg.Clustering.K)
	e.str("ARTLENS_METRIC", &cfg.Clustering.Metric)
	e.int("ARTLENS_MAX_ITERATIONS", &cfg.Clustering.MaxIterations)
	e.int64("ARTLENS_SEED", &cfg.Clustering.Seed)
	e.int("ARTLENS_WORKERS", &cfg.Clustering.Workers)
	e.int("ARTLENS_TOP_N", &cfg.Interpret.TopN)

	e.float("ARTLENS_MIN_SCORE", &cfg.Caption.MinScoreThreshold)
	e.int("ARTLENS_MAX_LABELS", &cfg.Caption.MaxLabelsPerDimension)

	e.str("ARTLENS_LOG_LEVEL", &cfg.Log.Level)
	e.str("ARTLENS_LOG_FORMAT", &cfg.Log.Format)

	e.str("ARTLENS_STORAGE_BACKEND", &cfg.Storage.Backend)
	e.str("ARTLENS_STORAGE_PATH", &cfg.Storage.Path)
	e.str("ARTLENS_STORAGE_BUCKET", &cfg.Storage.Bucket)
	e.str("ARTLENS_STORAGE_PREFIX", &cfg.Storage.Prefix)
	e.str("ARTLENS_STORAGE_REGION", &cfg.Storage.Region)
	e.str("ARTLENS_STORAGE_ENDPOINT", &cfg.Storage.Endpoint)
	e.str("ARTLENS_STORAGE_DDB_TABLE", &cfg.Storage.DynamoDBTable)
	e.str("ARTLENS_MINIO_ACCESS_KEY", &cfg.Storage.AccessKey)
	e.str("ARTLENS_MINIO_SECRET_KEY", &cfg.Storage.SecretKey)
	e.bool("ARTLENS_MINIO_SECURE", &cfg.Storage.Secure)
	e.str("ARTLENS_CODEC", &cfg.Storage.Codec)
	e.str("ARTLENS_COMPRESSION", &cfg.Storage.Compression)

	e.int64("ARTLENS_MEMORY_LIMIT_BYTES", &cfg.Resources.MemoryLimitBytes)
	e.int64("ARTLENS_MAX_BUILDS", &cfg.Resources.MaxConcurrentBuilds)
	e.int64("ARTLENS_IO_LIMIT_BYTES", &cfg.Resources.IOLimitBytesPerSec)

	return e.err
}

// Validate checks every section.
func (c *Config) Validate() error {
	metric, err := distance.ParseMetric(c.Clustering.Metric)
	if err != nil {
		return model.NewConfigurationError("clustering.metric", "%v", err)
	}
	if c.Clustering.K < 1 {
		return model.NewConfigurationError("clustering.k", "must be positive, got %d", c.Clustering.K)
	}
	cc := c.clusteringConfig(metric)
	if err := cc.Validate(cc.K); err != nil {
		return err
	}
	if c.Interpret.TopN < 0 {
		return model.NewConfigurationError("interpret.top_n", "must not be negative, got %d", c.Interpret.TopN)
	}
	if err := c.Caption.Validate(); err != nil {
		return err
	}
	if _, err := c.logLevel(); err != nil {
		return err
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" && f != "" {
		return model.NewConfigurationError("log.format", "must be text or json, got %q", c.Log.Format)
	}
	if c.Resources.MemoryLimitBytes < 0 || c.Resources.MaxConcurrentBuilds < 0 || c.Resources.IOLimitBytesPerSec < 0 {
		return model.NewConfigurationError("resources", "limits must not be negative")
	}
	return c.Storage.Validate()
}

func (c *Config) clusteringConfig(metric distance.Metric) clustering.Config {
	return clustering.Config{
		K:             c.Clustering.K,
		Metric:        metric,
		MaxIterations: c.Clustering.MaxIterations,
		Seed:          c.Clustering.Seed,
		Workers:       c.Clustering.Workers,
	}
}

func (c *Config) logLevel() (slog.Level, error) {
	var level slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, model.NewConfigurationError("log.level", "%v", err)
	}
	return level, nil
}

// Logger builds the configured logger writing to stderr.
func (c *Config) Logger() (*artlens.Logger, error) {
	return c.LoggerTo(os.Stderr)
}

// LoggerTo builds the configured logger writing to w.
func (c *Config) LoggerTo(w io.Writer) (*artlens.Logger, error) {
	level, err := c.logLevel()
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(c.Log.Format, "json") {
		return artlens.NewJSONLoggerTo(w, level), nil
	}
	return artlens.NewTextLoggerTo(w, level), nil
}

// Options maps the configuration onto pipeline options. The blob store is
// not included; open it with Storage.Open.
func (c *Config) Options() ([]artlens.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	metric, _ := distance.ParseMetric(c.Clustering.Metric)
	cd, _ := codec.ByName(c.Storage.Codec)
	comp, _ := snapshot.ParseCompression(c.Storage.Compression)
	logger, err := c.Logger()
	if err != nil {
		return nil, err
	}

	return []artlens.Option{
		artlens.WithClusteringConfig(c.clusteringConfig(metric)),
		artlens.WithTopN(c.Interpret.TopN),
		artlens.WithCaptionPolicy(c.Caption),
		artlens.WithCodec(cd),
		artlens.WithCompression(comp),
		artlens.WithResourceController(resource.NewController(c.Resources)),
		artlens.WithLogger(logger),
	}, nil
}

type envReader struct {
	err error
}

func (e *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) fail(key, val string, err error) {
	if e.err == nil {
		e.err = model.NewConfigurationError(key, "invalid value %q: %v", val, err)
	}
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) int(key string, dst *int) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) int64(key string, dst *int64) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) float(key string, dst *float64) {
	if v, ok := e.lookup(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (e *envReader) bool(key string, dst *bool) {
	if v, ok := e.lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = b
	}
}
