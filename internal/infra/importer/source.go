package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"eduplatform/internal/config"
)

// Source opens an import file by location.
type Source interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

type fileSource struct{}

func NewFileSource() Source { return fileSource{} }

func (fileSource) Open(_ context.Context, location string) (io.ReadCloser, error) {
	f, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", location, err)
	}
	return f, nil
}

// s3API is the part of *s3.Client the source uses.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type s3Source struct {
	client s3API
	log    zerolog.Logger
}

// NewS3Source reads s3://bucket/key locations using the default AWS
// credential chain.
func NewS3Source(ctx context.Context, cfg config.ImporterConfig, logger zerolog.Logger) (Source, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return &s3Source{client: client, log: logger.With().Str("component", "s3-promo-source").Logger()}, nil
}

func (s *s3Source) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, key, err := splitS3URL(location)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("bucket", bucket).Str("key", key).Msg("loading promo import from S3")
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from S3 (bucket=%s, key=%s): %w", bucket, key, err)
	}
	return out.Body, nil
}

func splitS3URL(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 url: %q", location)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 url must be s3://bucket/key: %q", location)
	}
	return bucket, key, nil
}

// routingSource sends s3:// locations to S3 and everything else to disk.
type routingSource struct {
	s3   Source
	file Source
}

// NewRoutingSource builds a Source for both local paths and s3:// URLs.
// s3Src may be nil, in which case s3:// locations fail.
func NewRoutingSource(s3Src, fileSrc Source) Source {
	return &routingSource{s3: s3Src, file: fileSrc}
}

func (r *routingSource) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if strings.HasPrefix(location, "s3://") {
		if r.s3 == nil {
			return nil, fmt.Errorf("s3 source not configured for %s", location)
		}
		return r.s3.Open(ctx, location)
	}
	return r.file.Open(ctx, location)
}
