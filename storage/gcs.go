package storage

import (
	"context"
	"dealspot-web/cache"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/api/iterator"
)

// GCS stores cache entries as objects in a Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	logger *slog.Logger
	bucket string
	prefix string
}

// NewGCS creates a backend storing objects under prefix in bucket.
func NewGCS(client *storage.Client, bucket, prefix string, logger *slog.Logger) *GCS {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &GCS{
		client: client,
		logger: logger,
		bucket: bucket,
		prefix: prefix,
	}
}

func (g *GCS) object(key string) *storage.ObjectHandle {
	return g.client.Bucket(g.bucket).Object(g.prefix + EntryName(key))
}

func (g *GCS) retryOpts(ctx context.Context, op, key string) []retry.Option {
	return []retry.Option{
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30 * time.Second),
		retry.MaxJitter(2 * time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			g.logger.Info("Retrying storage operation after error", "operation", op, "attempt", n, "key", key, "error", err)
		}),
	}
}

// Get reads the object for key.
func (g *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	var missing bool
	err := retry.Do(
		func() error {
			r, err := g.object(key).NewReader(ctx)
			if err != nil {
				if errors.Is(err, storage.ErrObjectNotExist) {
					missing = true
					return retry.Unrecoverable(cache.ErrNotFound)
				}
				return fmt.Errorf("open storage reader: %w", err)
			}
			defer func() {
				if closeErr := r.Close(); closeErr != nil {
					g.logger.Warn("Failed to close storage reader", "error", closeErr)
				}
			}()

			data, err = io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("read from storage: %w", err)
			}
			return nil
		},
		g.retryOpts(ctx, "get", key)...,
	)
	if missing {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load after retries: %w", err)
	}
	return data, nil
}

// Put writes the object for key.
func (g *GCS) Put(ctx context.Context, key string, data []byte) error {
	err := retry.Do(
		func() error {
			w := g.object(key).NewWriter(ctx)
			w.ContentType = "application/json"
			if _, err := w.Write(data); err != nil {
				if closeErr := w.Close(); closeErr != nil {
					g.logger.Warn("Failed to close writer after error", "error", closeErr)
				}
				return fmt.Errorf("write to storage: %w", err)
			}
			if err := w.Close(); err != nil {
				return fmt.Errorf("close storage writer: %w", err)
			}
			return nil
		},
		g.retryOpts(ctx, "put", key)...,
	)
	if err != nil {
		return fmt.Errorf("save after retries: %w", err)
	}
	return nil
}

// Delete removes the object for key.
func (g *GCS) Delete(ctx context.Context, key string) error {
	var missing bool
	err := retry.Do(
		func() error {
			if err := g.object(key).Delete(ctx); err != nil {
				if errors.Is(err, storage.ErrObjectNotExist) {
					missing = true
					return retry.Unrecoverable(cache.ErrNotFound)
				}
				return fmt.Errorf("delete from storage: %w", err)
			}
			return nil
		},
		g.retryOpts(ctx, "delete", key)...,
	)
	if missing {
		return cache.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete after retries: %w", err)
	}
	return nil
}

// Keys lists every cache key under the prefix.
func (g *GCS) Keys(ctx context.Context) ([]string, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{
		Prefix: g.prefix + entryPrefix,
	})

	var keys []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate storage: %w", err)
		}
		key, ok := KeyFromEntryName(strings.TrimPrefix(attrs.Name, g.prefix))
		if !ok {
			g.logger.Warn("Skipping foreign object", "name", attrs.Name)
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}
