package s3

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"coop-site/internal/shared/storage/object"
)

const defaultRegion = "us-east-1"

// Options configures the S3 backend. Endpoint points it at an S3-compatible
// service such as R2 or MinIO.
type Options struct {
	Region         string
	Bucket         string
	Prefix         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	PublicBaseURL  string
	UsePathStyle   bool
	KMSKeyID       string
	DeleteReplaced bool
}

type api interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store implements object.Backend using Amazon S3 or a compatible service.
type Store struct {
	client         api
	bucket         string
	prefix         string
	publicBase     string
	kmsKeyID       string
	deleteReplaced bool
	newID          func() string
}

// New creates a new S3-backed store.
func New(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	region := strings.TrimSpace(opts.Region)
	if region == "" {
		region = defaultRegion
		if opts.Endpoint != "" {
			region = "auto"
		}
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})

	return newStore(client, opts, publicBase(opts.PublicBaseURL, endpoint, opts.Bucket, region)), nil
}

func newStore(client api, opts Options, base string) *Store {
	return &Store{
		client:         client,
		bucket:         opts.Bucket,
		prefix:         object.NormalizePrefix(opts.Prefix),
		publicBase:     base,
		kmsKeyID:       strings.TrimSpace(opts.KMSKeyID),
		deleteReplaced: opts.DeleteReplaced,
		newID:          uuid.NewString,
	}
}

// Name implements object.Backend.
func (s *Store) Name() string {
	return "s3"
}

// Store uploads data and returns the object key and its public URL.
func (s *Store) Store(ctx context.Context, data []byte, fileName string, week int) (object.Reference, error) {
	if err := ctx.Err(); err != nil {
		return object.Reference{}, err
	}
	if err := object.CheckSize(data); err != nil {
		return object.Reference{}, err
	}
	if err := object.CheckWeek(week); err != nil {
		return object.Reference{}, err
	}

	key := object.RemoteKey(s.prefix, week, s.newID())
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/pdf"),
		Metadata:      map[string]string{"original-name": asciiOnly(fileName)},
	}
	if s.kmsKeyID != "" {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
		input.SSEKMSKeyId = aws.String(s.kmsKeyID)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return object.Reference{}, object.FromRemote("put", fmt.Errorf("bucket=%s key=%s: %w", s.bucket, key, err))
	}

	return object.Reference{Path: key, URL: object.JoinURL(s.publicBase, key)}, nil
}

// Remove deletes a replaced object when DeleteReplaced is set and is a no-op otherwise.
func (s *Store) Remove(ctx context.Context, ref object.Reference) error {
	if !object.OwnsRemote(s.prefix, ref) {
		return object.ErrNotOwned
	}
	if !s.deleteReplaced {
		return nil
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref.Path),
	}); err != nil {
		return object.FromRemote("delete", fmt.Errorf("bucket=%s key=%s: %w", s.bucket, ref.Path, err))
	}
	return nil
}

func publicBase(configured, endpoint, bucket, region string) string {
	if b := strings.TrimRight(strings.TrimSpace(configured), "/"); b != "" {
		return b
	}
	if endpoint != "" {
		return endpoint + "/" + bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
}

// asciiOnly keeps metadata values within what S3 signs without re-encoding.
func asciiOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 0x20 && r < 0x7f {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var _ object.Backend = (*Store)(nil)
