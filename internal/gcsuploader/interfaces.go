package gcsuploader

import (
	"context"
)

// StorageService provides an interface for cloud storage operations.
// This interface enables mocking and testing of storage functionality.
type StorageService interface {
	// UploadFile uploads a local file to a storage bucket under the given object name.
	UploadFile(ctx context.Context, bucketName, objectName, filePath string) error

	// ObjectSize returns the size in bytes of the object at the gs:// URI.
	ObjectSize(ctx context.Context, gcsURI string) (int64, error)

	// FetchFromGCS downloads file bytes from the given storage URI.
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)

	// ListPDFs returns the gs:// URIs of every .pdf object under a gs://bucket/prefix URI.
	ListPDFs(ctx context.Context, prefixURI string) ([]string, error)
}

// GCSStorageService is the concrete implementation of StorageService
// that interacts with Google Cloud Storage.
type GCSStorageService struct{}

// NewGCSStorageService creates a new instance of GCSStorageService.
func NewGCSStorageService() *GCSStorageService {
	return &GCSStorageService{}
}

func (s *GCSStorageService) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	return UploadFile(ctx, bucketName, objectName, filePath)
}

func (s *GCSStorageService) ObjectSize(ctx context.Context, gcsURI string) (int64, error) {
	return ObjectSize(ctx, gcsURI)
}

func (s *GCSStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return FetchFromGCS(ctx, gcsURI)
}

func (s *GCSStorageService) ListPDFs(ctx context.Context, prefixURI string) ([]string, error) {
	return ListPDFs(ctx, prefixURI)
}
