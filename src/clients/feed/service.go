package feed

import (
	"context"
	"fmt"
	"io"
	"time"

	"tracker/src/utils/requests"
)

// maxFeedBytes bounds a single download; holdings files are well under a megabyte.
const maxFeedBytes = 32 << 20

type FeedClientI interface {
	GetCSV(ctx context.Context, location string) ([]byte, error)
}

type FeedClient struct {
	API *requests.ExternalAPIService
}

// NewClient creates a client for vendor CSV feeds.
func NewClient(timeout time.Duration) *FeedClient {
	return &FeedClient{API: requests.NewExternalAPIService(timeout)}
}

// GetCSV downloads the CSV resource at location.
func (c *FeedClient) GetCSV(ctx context.Context, location string) ([]byte, error) {
	resp, err := c.API.Get(ctx, location, nil, "text/csv")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}
	if len(body) > maxFeedBytes {
		return nil, fmt.Errorf("feed body exceeds %d bytes", maxFeedBytes)
	}
	return body, nil
}
