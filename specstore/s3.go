package specstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Config configures an S3 artifact backend.
type S3Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string

	// AccessKey and SecretKey enable writes. Left empty, the backend
	// reads public objects only.
	AccessKey string
	SecretKey string
}

// S3Backend stores artifacts in an S3 (or compatible) bucket, keyed by
// content id hex under an optional prefix.
type S3Backend struct {
	client         *s3.S3
	writeClient    *s3.S3
	bucket         string
	prefix         string
	log            *slog.Logger
	locationURI    string
	hasWriteAccess bool
}

// NewS3Backend creates an S3 artifact backend.
func NewS3Backend(cfg S3Config, log *slog.Logger) (*S3Backend, error) {
	baseCfg := aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		baseCfg.Endpoint = aws.String(cfg.Endpoint)
	}

	baseSess, err := session.NewSession(&baseCfg)
	if err != nil {
		return nil, fmt.Errorf("creating AWS session: %w", err)
	}
	readClient := s3.New(baseSess)

	hasWriteAccess := cfg.AccessKey != "" && cfg.SecretKey != ""
	writeClient := readClient
	if hasWriteAccess {
		writeCfg := baseCfg.Copy()
		writeCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
		writeSess, err := session.NewSession(writeCfg)
		if err != nil {
			return nil, fmt.Errorf("creating AWS write session: %w", err)
		}
		writeClient = s3.New(writeSess)
	}

	return &S3Backend{
		client:         readClient,
		writeClient:    writeClient,
		bucket:         cfg.Bucket,
		prefix:         strings.Trim(cfg.Prefix, "/"),
		log:            log,
		locationURI:    fmt.Sprintf("s3://%s/%s?region=%s", cfg.Bucket, cfg.Prefix, cfg.Region),
		hasWriteAccess: hasWriteAccess,
	}, nil
}

// Fetch retrieves an artifact object and verifies its content hash.
func (b *S3Backend) Fetch(ctx context.Context, id ArtifactID) ([]byte, error) {
	result, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(id)),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "404") {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("fetching artifact from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("reading artifact body: %w", err)
	}
	if ArtifactIDOf(data) != id {
		return nil, fmt.Errorf("artifact %s content hash mismatch", id.Hex())
	}

	b.log.Debug("Fetched artifact from S3",
		slog.String("id", id.Hex()),
		slog.String("bucket", b.bucket),
		slog.Int("size", len(data)))
	return data, nil
}

// Store uploads the artifact under its content id.
func (b *S3Backend) Store(ctx context.Context, data []byte) (ArtifactID, error) {
	id := ArtifactIDOf(data)
	_, err := b.writeClient.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(id)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		if !b.hasWriteAccess {
			return id, fmt.Errorf("storing artifact in S3 (no write credentials): %w", err)
		}
		return id, fmt.Errorf("storing artifact in S3: %w", err)
	}

	b.log.Debug("Stored artifact in S3", slog.String("id", id.Hex()), slog.String("bucket", b.bucket))
	return id, nil
}

// Available reports whether the bucket responds to a head request.
func (b *S3Backend) Available(ctx context.Context) bool {
	_, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucket),
	})
	if err != nil {
		b.log.Debug("S3 backend unavailable", slog.String("bucket", b.bucket), "err", err)
		return false
	}
	return true
}

func (b *S3Backend) Name() string {
	return fmt.Sprintf("s3-%s", b.bucket)
}

func (b *S3Backend) LocationURI() string {
	return b.locationURI
}

func (b *S3Backend) objectKey(id ArtifactID) string {
	if b.prefix == "" {
		return id.Hex()
	}
	return path.Join(b.prefix, id.Hex())
}
