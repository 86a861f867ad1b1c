package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dd0wney/mspread/pkg/network"
)

// ObjectAPI is the subset of the S3 client used by S3Store.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store keeps snapshots as objects under a bucket prefix. Keys ending in
// ".sz" are stored snappy-framed.
type S3Store struct {
	client ObjectAPI
	bucket string
	prefix string
}

// Environment variables read by S3ConfigFromEnv.
const (
	EnvS3Endpoint  = "MSPREAD_S3_ENDPOINT"
	EnvS3Region    = "MSPREAD_S3_REGION"
	EnvS3AccessKey = "MSPREAD_S3_ACCESS_KEY"
	EnvS3SecretKey = "MSPREAD_S3_SECRET_KEY"
)

// S3Config overrides parts of the default AWS configuration. Empty fields
// keep the defaults. A non-empty Endpoint targets an S3-compatible store
// with path-style addressing.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// S3ConfigFromEnv reads the MSPREAD_S3_* variables.
func S3ConfigFromEnv() S3Config {
	return S3Config{
		Endpoint:  os.Getenv(EnvS3Endpoint),
		Region:    os.Getenv(EnvS3Region),
		AccessKey: os.Getenv(EnvS3AccessKey),
		SecretKey: os.Getenv(EnvS3SecretKey),
	}
}

func (c S3Config) loadOptions() []func(*config.LoadOptions) error {
	var opts []func(*config.LoadOptions) error
	if c.Region != "" {
		opts = append(opts, config.WithRegion(c.Region))
	}
	if c.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	}
	return opts
}

func (c S3Config) clientOptions(o *s3.Options) {
	if c.Endpoint != "" {
		o.BaseEndpoint = aws.String(c.Endpoint)
		o.UsePathStyle = true
	}
}

// NewS3Store creates a store from the default AWS configuration with cfg
// applied on top.
func NewS3Store(ctx context.Context, cfg S3Config, bucket, prefix string) (*S3Store, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, cfg.loadOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3StoreWithClient(s3.NewFromConfig(awsCfg, cfg.clientOptions), bucket, prefix), nil
}

// NewS3StoreWithClient creates a store over an existing client.
func NewS3StoreWithClient(client ObjectAPI, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (st *S3Store) key(name string) string {
	if st.prefix == "" {
		return name
	}
	return path.Join(st.prefix, name)
}

// Put uploads s under name and returns the full object key.
func (st *S3Store) Put(ctx context.Context, name string, s network.Snapshot) (string, error) {
	compressed := strings.HasSuffix(name, CompressedSuffix)
	data, err := Marshal(s, compressed)
	if err != nil {
		return "", err
	}

	contentType := "application/json"
	if compressed {
		contentType = "application/octet-stream"
	}
	key := st.key(name)
	_, err = st.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(st.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot s3://%s/%s: %w", st.bucket, key, err)
	}
	return key, nil
}

// Get downloads and decodes the snapshot stored under name.
func (st *S3Store) Get(ctx context.Context, name string) (network.Snapshot, error) {
	key := st.key(name)
	out, err := st.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(st.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return network.Snapshot{}, fmt.Errorf("failed to download snapshot s3://%s/%s: %w", st.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return network.Snapshot{}, fmt.Errorf("failed to read snapshot s3://%s/%s: %w", st.bucket, key, err)
	}
	return Unmarshal(data)
}
