// Package archive persists batch snapshots to a Google Cloud Storage
// bucket and derives the daily quota count from it.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/newsflow/guardian-ingest/internal/pipeline"
)

// Config captures the parameters required to reach the archive bucket.
type Config struct {
	Bucket    string
	ProjectID string
	Region    string
}

// Store writes one snapshot object per accepted batch, keyed by
// `{YYYY-MM-DD}/{HH-MM-SS}-{seq}` in UTC. The sequence suffix makes
// keys unique within a process even when two writes land in the same
// second. Objects are write-once; nothing here updates or deletes.
type Store struct {
	client *storage.Client
	cfg    Config
	logger *zap.Logger

	seq atomic.Uint64
	now func() time.Time
}

// NewStore builds a GCS-backed archive store. Bucket, project and
// region are validated at first use, not here.
func NewStore(client *storage.Client, cfg Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client: client,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Exists probes the bucket. A not-found condition is (false, nil); any
// other probe failure is a storage error.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	if s.cfg.Bucket == "" {
		return false, fmt.Errorf("%w: bucket name not set", pipeline.ErrConfiguration)
	}
	_, err := s.client.Bucket(s.cfg.Bucket).Attrs(ctx)
	switch {
	case err == nil:
		return true, nil
	case isBucketNotFound(err):
		return false, nil
	default:
		return false, fmt.Errorf("%w: probe bucket %q: %v", pipeline.ErrStorage, s.cfg.Bucket, err)
	}
}

// Create provisions the bucket in the configured region.
func (s *Store) Create(ctx context.Context) error {
	if s.cfg.Bucket == "" {
		return fmt.Errorf("%w: bucket name not set", pipeline.ErrConfiguration)
	}
	if s.cfg.ProjectID == "" {
		return fmt.Errorf("%w: project not specified", pipeline.ErrConfiguration)
	}
	if s.cfg.Region == "" {
		return fmt.Errorf("%w: region not specified", pipeline.ErrConfiguration)
	}

	err := s.client.Bucket(s.cfg.Bucket).Create(ctx, s.cfg.ProjectID, &storage.BucketAttrs{
		Location: s.cfg.Region,
	})
	if err == nil {
		s.logger.Info("created archive bucket",
			zap.String("bucket", s.cfg.Bucket),
			zap.String("region", s.cfg.Region),
		)
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusConflict:
			return fmt.Errorf("%w: bucket %q", pipeline.ErrConflict, s.cfg.Bucket)
		case http.StatusBadRequest:
			return fmt.Errorf("%w: invalid bucket name", pipeline.ErrValidation)
		}
	}
	return fmt.Errorf("%w: create bucket %q: %v", pipeline.ErrStorage, s.cfg.Bucket, err)
}

// CountToday counts snapshot objects under today's calendar-date prefix
// in UTC. The prefix always carries the trailing slash so one date can
// never match another key segment it merely starts. A missing bucket or
// an empty listing both count as zero.
func (s *Store) CountToday(ctx context.Context) (int, error) {
	if s.cfg.Bucket == "" {
		return 0, fmt.Errorf("%w: bucket name not set", pipeline.ErrConfiguration)
	}
	prefix := s.now().UTC().Format("2006-01-02") + "/"
	it := s.client.Bucket(s.cfg.Bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	count := 0
	for {
		_, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return count, nil
		}
		if isBucketNotFound(err) {
			return 0, nil
		}
		if err != nil {
			return 0, fmt.Errorf("%w: list %q under %q: %v", pipeline.ErrStorage, s.cfg.Bucket, prefix, err)
		}
		count++
	}
}

// Write serializes the full batch as one JSON document and stores it
// under a fresh timestamped key. A missing bucket is provisioned first;
// losing that create race to another writer is fine, the object goes to
// the bucket either way.
func (s *Store) Write(ctx context.Context, batch pipeline.Batch) error {
	exists, err := s.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.Create(ctx); err != nil && !errors.Is(err, pipeline.ErrConflict) {
			return err
		}
	}

	if batch == nil {
		batch = pipeline.Batch{}
	}
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("%w: marshal snapshot: %v", pipeline.ErrStorage, err)
	}

	now := s.now().UTC()
	key := fmt.Sprintf("%s/%s-%d", now.Format("2006-01-02"), now.Format("15-04-05"), s.seq.Add(1))

	wc := s.client.Bucket(s.cfg.Bucket).Object(key).NewWriter(ctx)
	wc.ContentType = "application/json"
	if _, err := wc.Write(data); err != nil {
		if closeErr := wc.Close(); closeErr != nil {
			s.logger.Warn("failed to close snapshot writer after write failure", zap.Error(closeErr))
		}
		return fmt.Errorf("%w: write snapshot %q: %v", pipeline.ErrStorage, key, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("%w: finalize snapshot %q: %v", pipeline.ErrStorage, key, err)
	}

	s.logger.Info("archived batch",
		zap.String("object", key),
		zap.Int("articles", len(batch)),
	)
	return nil
}

// isBucketNotFound recognizes both the library sentinel and a raw 404
// from the listing API.
func isBucketNotFound(err error) bool {
	if errors.Is(err, storage.ErrBucketNotExist) {
		return true
	}
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
