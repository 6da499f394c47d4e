package azure

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/google/uuid"

	"coop-site/internal/shared/storage/object"
)

// Options configures the Azure Blob Storage backend. ServiceURL overrides the
// account endpoint, e.g. for Azurite.
type Options struct {
	AccountName    string
	AccountKey     string
	Container      string
	ServiceURL     string
	Prefix         string
	PublicBaseURL  string
	DeleteReplaced bool
}

type container interface {
	upload(ctx context.Context, key string, data []byte, meta map[string]*string) error
	delete(ctx context.Context, key string) error
}

// Store implements object.Backend using Azure Blob Storage.
type Store struct {
	container      container
	prefix         string
	publicBase     string
	deleteReplaced bool
	newID          func() string
}

// New creates an Azure-backed store using shared key credentials.
func New(opts Options) (*Store, error) {
	if opts.AccountName == "" || opts.AccountKey == "" || opts.Container == "" {
		return nil, fmt.Errorf("azure account name, account key and container are required")
	}
	cred, err := azblob.NewSharedKeyCredential(opts.AccountName, opts.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("create azure credentials: %w", err)
	}

	serviceURL := strings.TrimSpace(opts.ServiceURL)
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", opts.AccountName)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create azure client: %w", err)
	}

	base := strings.TrimSpace(opts.PublicBaseURL)
	if base == "" {
		base = strings.TrimRight(serviceURL, "/") + "/" + opts.Container
	}
	return newStore(azContainer{client: client, name: opts.Container}, opts, base), nil
}

func newStore(c container, opts Options, base string) *Store {
	return &Store{
		container:      c,
		prefix:         object.NormalizePrefix(opts.Prefix),
		publicBase:     strings.TrimRight(base, "/"),
		deleteReplaced: opts.DeleteReplaced,
		newID:          uuid.NewString,
	}
}

// Name implements object.Backend.
func (s *Store) Name() string {
	return "azblob"
}

// Store uploads data as a block blob and returns its name and public URL.
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
	meta := map[string]*string{"week": to.Ptr(fmt.Sprintf("%d", week))}
	if err := s.container.upload(ctx, key, data, meta); err != nil {
		return object.Reference{}, object.FromRemote("put", fmt.Errorf("blob=%s: %w", key, err))
	}
	return object.Reference{Path: key, URL: object.JoinURL(s.publicBase, key)}, nil
}

// Remove deletes a replaced blob when DeleteReplaced is set.
func (s *Store) Remove(ctx context.Context, ref object.Reference) error {
	if !object.OwnsRemote(s.prefix, ref) {
		return object.ErrNotOwned
	}
	if !s.deleteReplaced {
		return nil
	}
	if err := s.container.delete(ctx, ref.Path); err != nil {
		return object.FromRemote("delete", fmt.Errorf("blob=%s: %w", ref.Path, err))
	}
	return nil
}

type azContainer struct {
	client *azblob.Client
	name   string
}

func (c azContainer) upload(ctx context.Context, key string, data []byte, meta map[string]*string) error {
	_, err := c.client.UploadBuffer(ctx, c.name, key, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr("application/pdf")},
		Metadata:    meta,
	})
	return err
}

func (c azContainer) delete(ctx context.Context, key string) error {
	_, err := c.client.DeleteBlob(ctx, c.name, key, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil
	}
	return err
}

var _ object.Backend = (*Store)(nil)
