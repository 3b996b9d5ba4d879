package config

import (
	"context"
	"io"
	"strings"

	"github.com/hupe1980/artlens/blobstore"
	badgerstore "github.com/hupe1980/artlens/blobstore/badger"
	miniostore "github.com/hupe1980/artlens/blobstore/minio"
	s3store "github.com/hupe1980/artlens/blobstore/s3"
	"github.com/hupe1980/artlens/codec"
	"github.com/hupe1980/artlens/model"
	"github.com/hupe1980/artlens/snapshot"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendLocal  = "local"
	BackendS3     = "s3"
	BackendMinIO  = "minio"
	BackendBadger = "badger"
)

// StorageConfig selects where snapshots are kept and how they are encoded.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	// Path is the directory of the local and badger backends.
	Path string `yaml:"path,omitempty"`

	Bucket   string `yaml:"bucket,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
	Region   string `yaml:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
	// DynamoDBTable enables the DynamoDB commit store for the s3 backend.
	DynamoDBTable string `yaml:"dynamodb_table,omitempty"`

	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	Secure    bool   `yaml:"secure,omitempty"`

	Codec       string `yaml:"codec"`
	Compression string `yaml:"compression"`
}

// Validate checks the backend and its required settings.
func (s StorageConfig) Validate() error {
	switch strings.ToLower(s.Backend) {
	case BackendMemory:
	case BackendLocal, BackendBadger:
		if s.Path == "" {
			return model.NewConfigurationError("storage.path", "required for the %s backend", s.Backend)
		}
	case BackendS3, BackendMinIO:
		if s.Bucket == "" {
			return model.NewConfigurationError("storage.bucket", "required for the %s backend", s.Backend)
		}
		if strings.EqualFold(s.Backend, BackendMinIO) && s.Endpoint == "" {
			return model.NewConfigurationError("storage.endpoint", "required for the minio backend")
		}
	default:
		return model.NewConfigurationError("storage.backend", "unknown backend %q", s.Backend)
	}
	if _, ok := codec.ByName(s.Codec); !ok {
		return model.NewConfigurationError("storage.codec", "unknown codec %q, want one of %s", s.Codec, strings.Join(codec.Names(), ", "))
	}
	if _, err := snapshot.ParseCompression(s.Compression); err != nil {
		return model.NewConfigurationError("storage.compression", "%v", err)
	}
	return nil
}

// Open connects to the configured backend. The returned closer releases
// backends holding resources (badger) and is a no-op otherwise.
func (s StorageConfig) Open(ctx context.Context) (blobstore.BlobStore, io.Closer, error) {
	if err := s.Validate(); err != nil {
		return nil, nil, err
	}

	switch strings.ToLower(s.Backend) {
	case BackendMemory:
		return blobstore.NewMemoryStore(), nopCloser{}, nil
	case BackendLocal:
		return blobstore.NewLocalStore(s.Path), nopCloser{}, nil
	case BackendBadger:
		st, err := badgerstore.Open(badgerstore.Options{Dir: s.Path})
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	case BackendMinIO:
		st, err := miniostore.Dial(miniostore.Config{
			Endpoint:  s.Endpoint,
			AccessKey: s.AccessKey,
			SecretKey: s.SecretKey,
			Bucket:    s.Bucket,
			Prefix:    s.Prefix,
			Region:    s.Region,
			Secure:    s.Secure,
		})
		if err != nil {
			return nil, nil, err
		}
		return st, nopCloser{}, nil
	default: // s3
		opts := []s3store.Option{s3store.WithPrefix(s.Prefix)}
		if s.Region != "" {
			opts = append(opts, s3store.WithRegion(s.Region))
		}
		if s.Endpoint != "" {
			opts = append(opts, s3store.WithEndpoint(s.Endpoint))
		}
		if s.DynamoDBTable != "" {
			st, err := s3store.NewDDB(ctx, s.Bucket, s.DynamoDBTable, opts...)
			if err != nil {
				return nil, nil, err
			}
			return st, nopCloser{}, nil
		}
		st, err := s3store.New(ctx, s.Bucket, opts...)
		if err != nil {
			return nil, nil, err
		}
		return st, nopCloser{}, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
