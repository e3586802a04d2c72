package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/logger"
)

func TestParseRef(t *testing.T) {
	cases := []struct {
		ref                  string
		bucket               string
		wantKind             RefKind
		wantBucket, wantPath string
		wantErr              bool
	}{
		{ref: "gs://lessons/a/b.pdf", wantKind: RefGCS, wantBucket: "lessons", wantPath: "a/b.pdf"},
		{ref: "courses/1/notes.pdf", bucket: "default-bkt", wantKind: RefGCS, wantBucket: "default-bkt", wantPath: "courses/1/notes.pdf"},
		{ref: "https://example.com/x.pdf", wantKind: RefHTTP, wantPath: "https://example.com/x.pdf"},
		{ref: "gs://only-bucket", wantErr: true},
		{ref: "courses/1/notes.pdf", wantErr: true},
		{ref: "  ", wantErr: true},
	}
	for _, tc := range cases {
		kind, bucket, object, err := ParseRef(tc.ref, tc.bucket)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.ref)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tc.ref, err)
		}
		if kind != tc.wantKind || bucket != tc.wantBucket || object != tc.wantPath {
			t.Fatalf("%q: got kind=%s bucket=%s object=%s", tc.ref, kind, bucket, object)
		}
	}
}

func TestFetchHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.pdf" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 test"))
	}))
	defer srv.Close()
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")

	f, err := NewSourceFetcher(context.Background(), logger.Nop(), Config{})
	if err != nil {
		t.Fatalf("NewSourceFetcher: %v", err)
	}
	defer f.Close()

	att, err := f.Fetch(context.Background(), srv.URL+"/docs/leaf.pdf")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if att.Name != "leaf.pdf" || att.MIMEType != "application/pdf" || string(att.Data) != "%PDF-1.4 test" {
		t.Fatalf("attachment: %+v", att)
	}
	if _, err := f.Fetch(context.Background(), srv.URL+"/missing.pdf"); err == nil {
		t.Fatalf("expected error for 404")
	}
}

func TestFetchGCSWithoutClient(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")
	f, err := NewSourceFetcher(context.Background(), logger.Nop(), Config{})
	if err != nil {
		t.Fatalf("NewSourceFetcher: %v", err)
	}
	if _, err := f.Fetch(context.Background(), "gs://b/o.pdf"); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("want ErrStorageUnavailable, got %v", err)
	}
}

func TestMimeFor(t *testing.T) {
	if got := mimeFor("notes.txt", "application/octet-stream"); got != "text/plain" {
		t.Fatalf("txt: %s", got)
	}
	if got := mimeFor("blob", ""); got != "application/pdf" {
		t.Fatalf("default: %s", got)
	}
}
