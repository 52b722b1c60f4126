package gcsuploader

import (
	"errors"
	"testing"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		allowEmpty bool
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"object", "gs://statements/2024/jan.pdf", false, "statements", "2024/jan.pdf", false},
		{"bucket only rejected", "gs://statements", false, "", "", true},
		{"bucket only as prefix", "gs://statements", true, "statements", "", false},
		{"prefix", "gs://statements/inbox/", true, "statements", "inbox/", false},
		{"wrong scheme", "s3://statements/jan.pdf", false, "", "", true},
		{"empty bucket", "gs:///jan.pdf", false, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri, tt.allowEmpty)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidURI) {
					t.Fatalf("expected ErrInvalidURI, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("got (%q, %q), want (%q, %q)", bucket, object, tt.wantBucket, tt.wantObject)
			}
		})
	}
}

func TestExtractFilenameFromGCSURI(t *testing.T) {
	tests := map[string]string{
		"gs://bucket/folder/file.pdf": "file.pdf",
		"gs://bucket/file.pdf":        "file.pdf",
		"gs://bucket":                 "bucket",
	}
	for in, want := range tests {
		if got := ExtractFilenameFromGCSURI(in); got != want {
			t.Errorf("ExtractFilenameFromGCSURI(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsGCSURI(t *testing.T) {
	if !IsGCSURI("gs://b/o.pdf") {
		t.Error("expected gs:// URI to be recognized")
	}
	if IsGCSURI("/tmp/o.pdf") {
		t.Error("local path recognized as gs:// URI")
	}
}
