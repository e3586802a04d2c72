package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/go-resty/resty/v2"
	"google.golang.org/api/option"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/logger"
)

// Attachment is a context document loaded for grounding a generation call.
type Attachment struct {
	Ref      string
	Name     string
	MIMEType string
	Data     []byte
}

// SourceFetcher resolves context file references into attachments.
type SourceFetcher interface {
	Fetch(ctx context.Context, ref string) (Attachment, error)
	Close() error
}

type Config struct {
	// Bucket resolves bare object paths like "courses/abc/notes.pdf".
	Bucket       string
	EmulatorHost string
	MaxBytes     int64
	HTTPTimeout  time.Duration
}

var ErrStorageUnavailable = errors.New("object storage not configured")

type sourceFetcher struct {
	log      *logger.Logger
	gcs      *gcs.Client
	http     *resty.Client
	bucket   string
	maxBytes int64
}

func NewSourceFetcher(ctx context.Context, log *logger.Logger, cfg Config) (SourceFetcher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 20 << 20
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 60 * time.Second
	}
	f := &sourceFetcher{
		log:      log.With("service", "SourceFetcher"),
		http:     resty.New().SetTimeout(cfg.HTTPTimeout).SetRetryCount(2).SetRetryWaitTime(500 * time.Millisecond),
		bucket:   strings.TrimSpace(cfg.Bucket),
		maxBytes: cfg.MaxBytes,
	}
	if f.bucket == "" && cfg.EmulatorHost == "" && len(ClientOptionsFromEnv()) == 0 {
		f.log.Info("No GCS bucket or credentials configured; gs:// context files disabled")
		return f, nil
	}
	opts := append(ClientOptionsFromEnv(), option.WithScopes(gcs.ScopeReadOnly))
	if host := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"); host != "" {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", host)
		opts = []option.ClientOption{option.WithoutAuthentication(), option.WithEndpoint(host + "/storage/v1/")}
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	f.gcs = client
	f.log.Info("Context file storage initialized", "bucket", f.bucket, "emulator_host", cfg.EmulatorHost)
	return f, nil
}

func ClientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

type RefKind string

const (
	RefGCS  RefKind = "gcs"
	RefHTTP RefKind = "http"
)

// ParseRef classifies ref. Bare paths resolve against defaultBucket.
func ParseRef(ref, defaultBucket string) (kind RefKind, bucket, object string, err error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return "", "", "", fmt.Errorf("empty context file reference")
	case strings.HasPrefix(ref, "gs://"):
		rest := strings.TrimPrefix(ref, "gs://")
		i := strings.Index(rest, "/")
		if i <= 0 || i == len(rest)-1 {
			return "", "", "", fmt.Errorf("invalid gs reference %q", ref)
		}
		return RefGCS, rest[:i], rest[i+1:], nil
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		if _, perr := url.ParseRequestURI(ref); perr != nil {
			return "", "", "", fmt.Errorf("invalid url %q: %w", ref, perr)
		}
		return RefHTTP, "", ref, nil
	default:
		if defaultBucket == "" {
			return "", "", "", fmt.Errorf("bare path %q with no default bucket: %w", ref, ErrStorageUnavailable)
		}
		return RefGCS, defaultBucket, strings.TrimPrefix(ref, "/"), nil
	}
}

func (f *sourceFetcher) Fetch(ctx context.Context, ref string) (Attachment, error) {
	kind, bucket, object, err := ParseRef(ref, f.bucket)
	if err != nil {
		return Attachment{}, err
	}
	switch kind {
	case RefHTTP:
		return f.fetchHTTP(ctx, ref, object)
	default:
		return f.fetchGCS(ctx, ref, bucket, object)
	}
}

func (f *sourceFetcher) fetchGCS(ctx context.Context, ref, bucket, object string) (Attachment, error) {
	if f.gcs == nil {
		return Attachment{}, ErrStorageUnavailable
	}
	r, err := f.gcs.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return Attachment{}, fmt.Errorf("open gs://%s/%s: %w", bucket, object, err)
	}
	defer r.Close()
	data, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return Attachment{}, fmt.Errorf("read gs://%s/%s: %w", bucket, object, err)
	}
	if int64(len(data)) > f.maxBytes {
		return Attachment{}, fmt.Errorf("gs://%s/%s exceeds %d bytes", bucket, object, f.maxBytes)
	}
	f.log.Debug("Loaded context file", "ref", ref, "bytes", len(data))
	return Attachment{Ref: ref, Name: path.Base(object), MIMEType: mimeFor(object, r.Attrs.ContentType), Data: data}, nil
}

func (f *sourceFetcher) fetchHTTP(ctx context.Context, ref, rawURL string) (Attachment, error) {
	resp, err := f.http.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return Attachment{}, fmt.Errorf("download %s: %w", rawURL, err)
	}
	if resp.IsError() {
		return Attachment{}, fmt.Errorf("download %s: status %d", rawURL, resp.StatusCode())
	}
	data := resp.Body()
	if int64(len(data)) > f.maxBytes {
		return Attachment{}, fmt.Errorf("%s exceeds %d bytes", rawURL, f.maxBytes)
	}
	name := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		name = path.Base(u.Path)
	}
	return Attachment{Ref: ref, Name: name, MIMEType: mimeFor(name, resp.Header().Get("Content-Type")), Data: data}, nil
}

func (f *sourceFetcher) Close() error {
	if f == nil || f.gcs == nil {
		return nil
	}
	return f.gcs.Close()
}

// mimeFor prefers a concrete declared type, then the extension, then PDF.
func mimeFor(name, declared string) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "" && mt != "application/octet-stream" {
		return mt
	}
	if mt := mime.TypeByExtension(strings.ToLower(path.Ext(name))); mt != "" {
		if base, _, err := mime.ParseMediaType(mt); err == nil {
			return base
		}
		return mt
	}
	return "application/pdf"
}
