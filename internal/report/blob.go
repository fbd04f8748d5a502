package report

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/mergegate/mergegate/internal/models"
)

// BlobOptions configures the Azure Blob Storage sink.
type BlobOptions struct {
	// ServiceURL is the storage account endpoint, e.g.
	// https://myaccount.blob.core.windows.net/.
	ServiceURL string `mapstructure:"service_url"`
	Container  string `mapstructure:"container"`
	// Prefix is prepended to the generated blob name.
	Prefix string `mapstructure:"prefix"`
}

// BlobSink uploads the verdict JSON to a blob container, named by suite and
// cycle start time. Authentication uses the ambient Azure credential chain
// (environment, workload identity, managed identity, CLI).
type BlobSink struct {
	opts   BlobOptions
	client *azblob.Client
}

// NewBlobSink validates options and builds the client.
func NewBlobSink(opts BlobOptions) (*BlobSink, error) {
	if opts.ServiceURL == "" {
		return nil, fmt.Errorf("service_url is required")
	}
	if opts.Container == "" {
		return nil, fmt.Errorf("container is required")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("building Azure credential: %w", err)
	}
	client, err := azblob.NewClient(opts.ServiceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("building blob client: %w", err)
	}
	return &BlobSink{opts: opts, client: client}, nil
}

func (s *BlobSink) Name() string { return "azure-blob" }

func (s *BlobSink) Publish(ctx context.Context, v *models.FinalVerdict) error {
	data, err := MarshalVerdict(v)
	if err != nil {
		return err
	}

	blobName := fmt.Sprintf("%s%s-%s.json",
		s.opts.Prefix,
		v.SuiteName,
		v.StartTime.UTC().Format(time.RFC3339))

	if _, err := s.client.UploadBuffer(ctx, s.opts.Container, blobName, data, nil); err != nil {
		return fmt.Errorf("uploading verdict blob: %w", err)
	}
	return nil
}
