package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// httpFetch is the wingetmanifest.Fetcher used by the CLI: a plain GET
// with no MS-CV/User-Agent stamping, since the WinGet CDN is not one of
// the Microsoft endpoints spec §6 requires those headers on.
func httpFetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	return io.ReadAll(resp.Body)
}
