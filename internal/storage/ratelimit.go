package storage

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedClient wraps a Client with a token bucket so outbound calls
// respect the provider's per-request rate limits. Waits block until a token
// is available or the context is canceled.
type RateLimitedClient struct {
	inner   Client
	limiter *rate.Limiter
}

// NewRateLimitedClient wraps client with the given requests-per-second and burst.
func NewRateLimitedClient(client Client, rps float64, burst int) *RateLimitedClient {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedClient{
		inner:   client,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// ListChildren implements Client.
func (c *RateLimitedClient) ListChildren(ctx context.Context, folderID string) ([]File, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.inner.ListChildren(ctx, folderID)
}

// FetchContent implements Client.
func (c *RateLimitedClient) FetchContent(ctx context.Context, fileID string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return c.inner.FetchContent(ctx, fileID)
}

// CopyFile implements Client.
func (c *RateLimitedClient) CopyFile(ctx context.Context, sourceID, destFolderID, newName string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return c.inner.CopyFile(ctx, sourceID, destFolderID, newName)
}

// MoveToTrash implements Client.
func (c *RateLimitedClient) MoveToTrash(ctx context.Context, fileID string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.inner.MoveToTrash(ctx, fileID)
}

// UploadOrReplace implements Client.
func (c *RateLimitedClient) UploadOrReplace(ctx context.Context, folderID, name, content, existingFileID, mimeType string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return c.inner.UploadOrReplace(ctx, folderID, name, content, existingFileID, mimeType)
}
