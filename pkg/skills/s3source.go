package skills

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/platinummonkey/skillgate/pkg/skills")

// S3API is the subset of the S3 client used to fetch bundle manifests
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds the location of remotely stored bundle manifests
type S3Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	UsePathStyle bool
	AccessKey    string
	SecretKey    string
}

// S3ManifestSource resolves bundles from manifests stored at
// s3://<bucket>/<prefix>/<bundle>/bundle.yaml
type S3ManifestSource struct {
	client S3API
	bucket string
	prefix string
	log    *logrus.Logger
}

// NewS3ManifestSource builds an S3 client from cfg and wraps it in a source
func NewS3ManifestSource(ctx context.Context, cfg S3Config, log *logrus.Logger) (*S3ManifestSource, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewS3ManifestSourceWithClient(client, cfg.Bucket, cfg.Prefix, log), nil
}

// NewS3ManifestSourceWithClient wraps an existing client
func NewS3ManifestSourceWithClient(client S3API, bucket, prefix string, log *logrus.Logger) *S3ManifestSource {
	if log == nil {
		log = logrus.New()
	}
	return &S3ManifestSource{client: client, bucket: bucket, prefix: prefix, log: log}
}

func (s *S3ManifestSource) key(name string) string {
	return path.Join(s.prefix, name, ManifestFile)
}

// Lookup implements PluginSource
func (s *S3ManifestSource) Lookup(ctx context.Context, name string) (*Bundle, error) {
	if !IsValidBundleName(name) {
		return nil, fmt.Errorf("invalid bundle name: %q", name)
	}

	key := s.key(name)
	ctx, span := tracer.Start(ctx, "S3ManifestSource.Lookup",
		trace.WithAttributes(
			attribute.String("s3.bucket", s.bucket),
			attribute.String("s3.key", key),
		),
	)
	defer span.End()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			s.log.Debugf("Bundle manifest does not exist: s3://%s/%s", s.bucket, key)
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get manifest from S3: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read manifest from S3: %w", err)
	}

	manifest, err := ParseBundleManifest(data)
	if err != nil {
		return nil, err
	}
	if manifest.Name != name {
		return nil, fmt.Errorf("manifest at s3://%s/%s declares bundle %q", s.bucket, key, manifest.Name)
	}

	span.SetStatus(codes.Ok, "")
	return manifest.ToBundle()
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}
