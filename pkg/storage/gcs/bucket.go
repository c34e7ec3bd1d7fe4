package gcs

import (
	"context"
	"io"
	"time"
)

// Bucket scopes object operations to one bucket. It satisfies the storage
// contract used by the photo service: put, sign, delete, exists.
type Bucket struct {
	name   string
	client *Client
}

func (b *Bucket) Name() string {
	return b.name
}

func (b *Bucket) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	return b.client.UploadObject(ctx, b.name, key, contentType, body)
}

func (b *Bucket) SignedURL(key string, ttl time.Duration) (string, error) {
	return b.client.SignedReadURL(b.name, key, ttl)
}

func (b *Bucket) Delete(ctx context.Context, key string) error {
	return b.client.DeleteObject(ctx, b.name, key)
}

func (b *Bucket) Exists(ctx context.Context, key string) (bool, error) {
	return b.client.ObjectExists(ctx, b.name, key)
}

func (b *Bucket) Ping(ctx context.Context) error {
	return b.client.Ping(ctx)
}
