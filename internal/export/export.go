package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"merot-portal/internal/client"
	"merot-portal/internal/storage"
	"path"
	"strings"
	"time"
)

const DefaultPrefix = "exports"

type Gateway interface {
	ExportAnalytics(ctx context.Context, format string) (*client.Export, error)
}

// Result describes where an export was written.
type Result struct {
	Bucket      string
	Key         string
	ContentType string
	Size        int64
}

// Exporter downloads the analytics export and stores it in a bucket, keyed by
// the filename the server suggested.
type Exporter struct {
	gateway  Gateway
	provider storage.Provider
	bucket   string
	prefix   string
	now      func() time.Time
}

func NewExporter(gateway Gateway, provider storage.Provider, bucket string) *Exporter {
	return &Exporter{gateway: gateway, provider: provider, bucket: bucket, prefix: DefaultPrefix, now: time.Now}
}

func (e *Exporter) Bucket() string { return e.bucket }

// Run fetches the export in the given format and uploads it. If progress is
// non-nil the uploaded bytes are also written to it.
func (e *Exporter) Run(ctx context.Context, format string, progress func(total int64) io.Writer) (Result, error) {
	exp, err := e.gateway.ExportAnalytics(ctx, format)
	if err != nil {
		return Result{}, fmt.Errorf("error downloading %s export: %w", format, err)
	}

	if err := e.provider.CreateBucket(ctx, e.bucket); err != nil {
		return Result{}, err
	}

	filename := exportFilename(exp.Filename)
	if filename == "" {
		filename = fmt.Sprintf("analytics-%s.%s", e.now().Format("20060102"), format)
	}
	key := path.Join(e.prefix, filename)

	var body io.Reader = bytes.NewReader(exp.Data)
	if progress != nil {
		body = io.TeeReader(body, progress(int64(len(exp.Data))))
	}

	if err := e.provider.PutObject(ctx, e.bucket, key, body); err != nil {
		return Result{}, fmt.Errorf("error storing export %s: %w", key, err)
	}

	slog.Info("analytics export stored", "bucket", e.bucket, "key", key, "bytes", len(exp.Data))

	return Result{Bucket: e.bucket, Key: key, ContentType: exp.ContentType, Size: int64(len(exp.Data))}, nil
}

// exportFilename keeps only the last element of the server suggested name, so
// the key always stays under the export prefix. It returns "" when nothing
// usable is left.
func exportFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	switch name {
	case ".", "..", "/":
		return ""
	}
	return name
}

// List returns the exports already stored in the bucket.
func (e *Exporter) List(ctx context.Context) ([]storage.Object, error) {
	objects, err := e.provider.ListObjects(ctx, e.bucket, e.prefix+"/")
	if err != nil {
		return nil, fmt.Errorf("error listing exports: %w", err)
	}
	return objects, nil
}
