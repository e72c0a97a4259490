package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"
)

// Download streams url into w and returns the number of bytes written.
// Bodies larger than limit fail; a limit of zero means no limit.
func Download(ctx context.Context, client *http.Client, url string, w io.Writer, limit int64) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}
	if limit > 0 && resp.ContentLength > limit {
		return 0, fmt.Errorf("download %s: size %s exceeds limit %s",
			url, humanize.Bytes(uint64(resp.ContentLength)), humanize.Bytes(uint64(limit)))
	}

	body := io.Reader(resp.Body)
	if limit > 0 {
		body = io.LimitReader(resp.Body, limit+1)
	}
	n, err := io.Copy(w, body)
	if err != nil {
		return n, fmt.Errorf("download %s: %w", url, err)
	}
	if limit > 0 && n > limit {
		return n, fmt.Errorf("download %s: body exceeds limit %s", url, humanize.Bytes(uint64(limit)))
	}
	return n, nil
}
