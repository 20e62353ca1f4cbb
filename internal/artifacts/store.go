// Package artifacts stores failure evidence (screenshot, page HTML, metadata) for
// browser steps in an S3-compatible bucket. Tests run it against gofakes3.
package artifacts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/kuitang/kgportal-e2e/internal/errs"
)

// Store writes failure artifacts under runs/<run-id>/ in one bucket.
type Store struct {
	s3Client   *s3.Client
	bucketName string
	runID      string
}

// Config holds the configuration for creating a Store.
type Config struct {
	// Endpoint is the S3 endpoint URL. Leave empty to use default AWS S3.
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	// UsePathStyle enables path-style addressing (required for gofakes3 and MinIO).
	UsePathStyle bool
}

// Failure is the evidence captured when a browser step fails.
type Failure struct {
	Scenario   string
	Step       string
	URL        string
	Err        error
	Screenshot []byte // PNG; omitted when empty
	HTML       string // omitted when empty
	At         time.Time
}

type failureMeta struct {
	Scenario string    `json:"scenario"`
	Step     string    `json:"step"`
	URL      string    `json:"url"`
	Error    string    `json:"error,omitempty"`
	Code     string    `json:"code,omitempty"`
	At       time.Time `json:"at"`
}

// New creates a Store with a fresh run id.
func New(ctx context.Context, cfg Config) (*Store, error) {
	var opts []func(*config.LoadOptions) error

	opts = append(opts, config.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	sdkConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "artifacts: load AWS config", err)
	}

	s3Client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewFromS3Client(s3Client, cfg.BucketName), nil
}

// NewFromS3Client creates a Store from an existing S3 client.
func NewFromS3Client(s3Client *s3.Client, bucketName string) *Store {
	return &Store{
		s3Client:   s3Client,
		bucketName: bucketName,
		runID:      uuid.NewString(),
	}
}

// RunID identifies this test process's artifacts.
func (s *Store) RunID() string {
	return s.runID
}

// BucketName returns the configured bucket name.
func (s *Store) BucketName() string {
	return s.bucketName
}

// Prefix returns the key prefix for a scenario in this run.
func (s *Store) Prefix(scenario string) string {
	return path.Join("runs", s.runID, slug(scenario)) + "/"
}

// SaveFailure uploads the failure's screenshot, HTML and metadata and returns the
// keys written, metadata last.
func (s *Store) SaveFailure(ctx context.Context, f Failure) ([]string, error) {
	if f.At.IsZero() {
		f.At = time.Now().UTC()
	}
	base := s.Prefix(f.Scenario) + slug(f.Step)

	var keys []string
	if len(f.Screenshot) > 0 {
		if err := s.put(ctx, base+".png", f.Screenshot, "image/png"); err != nil {
			return keys, err
		}
		keys = append(keys, base+".png")
	}
	if f.HTML != "" {
		if err := s.put(ctx, base+".html", []byte(f.HTML), "text/html; charset=utf-8"); err != nil {
			return keys, err
		}
		keys = append(keys, base+".html")
	}

	meta := failureMeta{
		Scenario: f.Scenario,
		Step:     f.Step,
		URL:      f.URL,
		At:       f.At,
	}
	if f.Err != nil {
		meta.Error = f.Err.Error()
		meta.Code = string(errs.CodeOf(f.Err))
	}
	body, err := json.Marshal(meta)
	if err != nil {
		return keys, fmt.Errorf("artifacts: encode metadata: %w", err)
	}
	if err := s.put(ctx, base+".json", body, "application/json"); err != nil {
		return keys, err
	}
	return append(keys, base+".json"), nil
}

// Get retrieves the content stored under the given key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &nsk) || errors.As(err, &notFound) {
			return nil, errs.New(errs.NotFound, fmt.Sprintf("artifacts: %q not found", key))
		}
		return nil, errs.Wrap(errs.Unavailable, fmt.Sprintf("artifacts: get %q", key), err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("artifacts: read %q: %w", key, err)
	}
	return data, nil
}

// List returns the keys stored under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucketName),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errs.Wrap(errs.Unavailable, fmt.Sprintf("artifacts: list %q", prefix), err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

func (s *Store) put(ctx context.Context, key string, content []byte, contentType string) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return errs.Wrap(errs.Unavailable, fmt.Sprintf("artifacts: put %q", key), err)
	}
	return nil
}

// slug keeps keys readable: lower-case alphanumerics, runs of anything else become '-'.
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "unnamed"
	}
	return out
}
