// Package s3 guarda las fotos en un bucket S3 compatible (AWS S3 o MinIO).
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var ErrExists = errors.New("blob already exists")

type Config struct {
	Bucket          string
	Region          string // default us-east-1
	Endpoint        string // opcional, p.ej. MinIO
	AccessKeyID     string // opcional, si no se usa la cadena default de credenciales
	SecretAccessKey string
	PathStyle       bool

	// PublicBaseURL arma las URLs públicas (CDN o bucket público).
	// Si está vacío se deriva de Endpoint/Region.
	PublicBaseURL string
}

type Store struct {
	client *s3.Client
	bucket string
	public string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newStore(client, cfg), nil
}

func newStore(client *s3.Client, cfg Config) *Store {
	return &Store{client: client, bucket: cfg.Bucket, public: publicBase(cfg)}
}

func publicBase(cfg Config) string {
	if b := strings.TrimSpace(cfg.PublicBaseURL); b != "" {
		return strings.TrimRight(b, "/")
	}
	if cfg.Endpoint != "" {
		ep := strings.TrimRight(cfg.Endpoint, "/")
		if cfg.PathStyle {
			return ep + "/" + cfg.Bucket
		}
		if u, err := url.Parse(ep); err == nil && u.Host != "" {
			u.Host = cfg.Bucket + "." + u.Host
			return strings.TrimRight(u.String(), "/")
		}
		return ep + "/" + cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}

// Upload es create-only (Head antes de Put) y devuelve la URL pública.
func (s *Store) Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("blob key required")
	}

	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key}); err == nil {
		return "", fmt.Errorf("%w: %s", ErrExists, key)
	}

	// El SDK necesita un body con Seek para firmar; los uploads de fotos son chicos.
	body, ok := r.(io.ReadSeeker)
	if !ok {
		b, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("read blob: %w", err)
		}
		body = bytes.NewReader(b)
	}

	input := &s3.PutObjectInput{Bucket: &s.bucket, Key: &key, Body: body}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", err
	}
	return s.PublicURL(key), nil
}

func (s *Store) PublicURL(key string) string {
	return s.public + "/" + (&url.URL{Path: key}).EscapedPath()
}
