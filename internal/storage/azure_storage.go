package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"

	apperrors "go-roof-inspector/internal/errors"
)

type azureStorage struct {
	client    *azblob.Client
	container string
	baseURL   string
}

// NewAzureStorage stores dossier artifacts as blobs in one container.
func NewAzureStorage(accountName, accountKey, container string) (BlobStorage, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return &azureStorage{
		client:    client,
		container: container,
		baseURL:   strings.TrimRight(client.URL(), "/"),
	}, nil
}

func (s *azureStorage) Save(ctx context.Context, data []byte, path, contentType string) (string, error) {
	path = strings.TrimLeft(path, "/")
	if err := validatePath(path); err != nil {
		return "", err
	}

	_, err := s.client.UploadBuffer(ctx, s.container, path, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr(contentType)},
	})
	if err != nil {
		return "", apperrors.NewStorageError(fmt.Sprintf("upload %s failed", path), err)
	}

	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.container, path), nil
}

// Load reads a blob back; used by the CLI to inspect stored artifacts.
func (s *azureStorage) Load(ctx context.Context, path string) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, strings.TrimLeft(path, "/"), nil)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("download %s failed", path), err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("read %s failed", path), err)
	}
	return buf.Bytes(), nil
}

func (s *azureStorage) Close() error {
	return nil
}
