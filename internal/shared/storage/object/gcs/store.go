package gcs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"coop-site/internal/shared/storage/object"
)

// Options configures the Google Cloud Storage backend.
type Options struct {
	Bucket          string
	Prefix          string
	CredentialsFile string
	PublicBaseURL   string
	DeleteReplaced  bool
}

type bucket interface {
	put(ctx context.Context, key string, data []byte, meta map[string]string) error
	delete(ctx context.Context, key string) error
}

// Store implements object.Backend using Google Cloud Storage.
type Store struct {
	bucket         bucket
	client         *storage.Client
	prefix         string
	publicBase     string
	deleteReplaced bool
	newID          func() string
}

// New creates a GCS-backed store. Credentials come from CredentialsFile or
// the ambient application default credentials.
func New(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}

	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	base := strings.TrimSpace(opts.PublicBaseURL)
	if base == "" {
		base = "https://storage.googleapis.com/" + opts.Bucket
	}

	s := newStore(gcsBucket{handle: client.Bucket(opts.Bucket)}, opts, base)
	s.client = client
	return s, nil
}

func newStore(b bucket, opts Options, base string) *Store {
	return &Store{
		bucket:         b,
		prefix:         object.NormalizePrefix(opts.Prefix),
		publicBase:     strings.TrimRight(base, "/"),
		deleteReplaced: opts.DeleteReplaced,
		newID:          uuid.NewString,
	}
}

// Name implements object.Backend.
func (s *Store) Name() string {
	return "gcs"
}

// Store uploads data and returns the object name and its public URL.
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
	if err := s.bucket.put(ctx, key, data, map[string]string{"original-name": fileName}); err != nil {
		return object.Reference{}, object.FromRemote("put", fmt.Errorf("key=%s: %w", key, err))
	}
	return object.Reference{Path: key, URL: object.JoinURL(s.publicBase, key)}, nil
}

// Remove deletes a replaced object when DeleteReplaced is set.
func (s *Store) Remove(ctx context.Context, ref object.Reference) error {
	if !object.OwnsRemote(s.prefix, ref) {
		return object.ErrNotOwned
	}
	if !s.deleteReplaced {
		return nil
	}
	if err := s.bucket.delete(ctx, ref.Path); err != nil {
		return object.FromRemote("delete", fmt.Errorf("key=%s: %w", ref.Path, err))
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

type gcsBucket struct {
	handle *storage.BucketHandle
}

func (b gcsBucket) put(ctx context.Context, key string, data []byte, meta map[string]string) error {
	w := b.handle.Object(key).NewWriter(ctx)
	w.ContentType = "application/pdf"
	w.Metadata = meta
	if _, err := w.Write(data); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			return fmt.Errorf("write: %w (close: %v)", err, closeErr)
		}
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

func (b gcsBucket) delete(ctx context.Context, key string) error {
	err := b.handle.Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

var _ object.Backend = (*Store)(nil)
