// Package gcsuploader moves statement PDFs in and out of Google Cloud Storage.
package gcsuploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

const uriScheme = "gs://"

// ErrInvalidURI is returned for URIs that are not gs://bucket/object.
var ErrInvalidURI = errors.New("invalid GCS URI")

// IsGCSURI reports whether s looks like a gs:// URI.
func IsGCSURI(s string) bool {
	return strings.HasPrefix(s, uriScheme)
}

// ParseURI splits gs://bucket/path/to/object into bucket and object. The
// object may be empty when allowEmptyObject is set (bucket-wide prefixes).
func ParseURI(uri string, allowEmptyObject bool) (bucket, object string, err error) {
	if !IsGCSURI(uri) {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidURI, uri)
	}
	trimmed := strings.TrimPrefix(uri, uriScheme)
	parts := strings.SplitN(trimmed, "/", 2)
	bucket = parts[0]
	if len(parts) == 2 {
		object = parts[1]
	}
	if bucket == "" || (object == "" && !allowEmptyObject) {
		return "", "", fmt.Errorf("%w (no object path): %s", ErrInvalidURI, uri)
	}
	return bucket, object, nil
}

// ExtractFilenameFromGCSURI extracts the filename from a GCS URI.
// e.g., "gs://bucket/folder/file.pdf" → "file.pdf"
func ExtractFilenameFromGCSURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, uriScheme)
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

// UploadFile uploads a local file to a GCS bucket under the given object name.
// It assumes Application Default Credentials are configured (gcloud auth application-default login).
func UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("UploadFile: open file %q: %w", filePath, err)
	}
	defer f.Close()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("UploadFile: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/pdf"

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("UploadFile: copy file to GCS writer: %w", err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("UploadFile: finalize upload: %w", err)
	}
	return nil
}

// ObjectSize reads the object's attributes without downloading it.
func ObjectSize(ctx context.Context, gcsURI string) (int64, error) {
	bucketName, objectPath, err := ParseURI(gcsURI, false)
	if err != nil {
		return 0, fmt.Errorf("ObjectSize: %w", err)
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return 0, fmt.Errorf("ObjectSize: creating storage client: %w", err)
	}
	defer client.Close()

	attrs, err := client.Bucket(bucketName).Object(objectPath).Attrs(ctx)
	if err != nil {
		return 0, fmt.Errorf("ObjectSize: reading attributes of %s/%s: %w", bucketName, objectPath, err)
	}
	return attrs.Size, nil
}

// FetchFromGCS downloads the file bytes from the given GCS URI.
func FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	bucketName, objectPath, err := ParseURI(gcsURI, false)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: %w", err)
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: creating storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: reading bytes: %w", err)
	}
	return data, nil
}

// ListPDFs lists every object ending in .pdf under the prefix, in listing order.
func ListPDFs(ctx context.Context, prefixURI string) ([]string, error) {
	bucketName, prefix, err := ParseURI(prefixURI, true)
	if err != nil {
		return nil, fmt.Errorf("ListPDFs: %w", err)
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListPDFs: creating storage client: %w", err)
	}
	defer client.Close()

	var uris []string
	it := client.Bucket(bucketName).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListPDFs: iterating %s: %w", prefixURI, err)
		}
		if strings.HasSuffix(strings.ToLower(attrs.Name), ".pdf") {
			uris = append(uris, uriScheme+bucketName+"/"+attrs.Name)
		}
	}
	return uris, nil
}
