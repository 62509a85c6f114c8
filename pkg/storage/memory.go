package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemoryClient is an in-process S3Client used by unit tests and local
// development. It records delete calls so replacement semantics can be
// asserted.
type MemoryClient struct {
	mu      sync.Mutex
	objects map[string][]byte
	Deleted []string

	// FailUploads / FailDeletes simulate a storage outage.
	FailUploads bool
	FailDeletes bool
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{objects: make(map[string][]byte)}
}

func (c *MemoryClient) objectKey(bucket, key string) string {
	return bucket + "/" + key
}

func (c *MemoryClient) Upload(ctx context.Context, bucket, key string, body io.Reader) error {
	if c.FailUploads {
		return fmt.Errorf("storage unavailable")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[c.objectKey(bucket, key)] = data
	return nil
}

func (c *MemoryClient) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.objects[c.objectKey(bucket, key)]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (c *MemoryClient) Delete(ctx context.Context, bucket, key string) error {
	if c.FailDeletes {
		return fmt.Errorf("storage unavailable")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, c.objectKey(bucket, key))
	c.Deleted = append(c.Deleted, key)
	return nil
}

func (c *MemoryClient) GetPresignedURL(ctx context.Context, bucket, key string, expiration time.Duration) (string, error) {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key), nil
}

// Has reports whether an object currently exists.
func (c *MemoryClient) Has(bucket, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.objects[c.objectKey(bucket, key)]
	return ok
}
