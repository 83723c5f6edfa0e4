package gcsmirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/bioterms-backend/internal/platform/ctxutil"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
)

// Mirror caches upstream release archives in a GCS bucket so repeated
// ingests do not keep hammering third-party servers. Objects are keyed by
// the loader-relative file path.
type Mirror struct {
	client *storage.Client
	bucket string
	log    *logger.Logger
}

// NewFromEnv builds a Mirror for the named bucket. An empty bucket name
// returns (nil, nil): mirroring is optional. STORAGE_EMULATOR_HOST
// switches to unauthenticated access for local development.
func NewFromEnv(ctx context.Context, log *logger.Logger, bucket string) (*Mirror, error) {
	if log == nil {
		return nil, fmt.Errorf("gcsmirror: logger required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, nil
	}

	var opts []option.ClientOption
	if strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")) != "" {
		opts = append(opts, option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctxutil.Default(ctx), opts...)
	if err != nil {
		return nil, fmt.Errorf("gcsmirror: init client: %w", err)
	}

	return &Mirror{
		client: client,
		bucket: bucket,
		log:    log.With("client", "GCSMirror"),
	}, nil
}

// Fetch opens a mirrored object. The second return is false when the
// object is not in the mirror.
func (m *Mirror) Fetch(ctx context.Context, object string) (io.ReadCloser, bool, error) {
	if m == nil {
		return nil, false, nil
	}
	reader, err := m.client.Bucket(m.bucket).Object(object).NewReader(ctxutil.Default(ctx))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("gcsmirror: open %s: %w", object, err)
	}
	m.log.Info("Release archive served from mirror", "object", object)
	return reader, true, nil
}

// Store writes an object into the mirror. Failures are reported but the
// caller is expected to treat them as non-fatal.
func (m *Mirror) Store(ctx context.Context, object string, r io.Reader) error {
	if m == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), 10*time.Minute)
	defer cancel()

	w := m.client.Bucket(m.bucket).Object(object).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcsmirror: write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcsmirror: close %s: %w", object, err)
	}
	m.log.Info("Release archive mirrored", "object", object)
	return nil
}

func (m *Mirror) Close() error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Close()
}
