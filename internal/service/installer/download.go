package installer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// Downloader opens a streaming GET for an asset URL.
type Downloader interface {
	// Download returns a successful response; the caller closes the body.
	Download(ctx context.Context, rawURL string) (*http.Response, error)
}

// ProgressFunc receives received and declared byte counts.
type ProgressFunc func(received, total int64)

type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	report ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.report(p.read, p.total)
	}

	return n, err
}

// fetch streams rawURL into path. Progress is only reported when the
// response declares a positive length.
func fetch(ctx context.Context, d Downloader, rawURL, path string, progress ProgressFunc) error {
	resp, err := d.Download(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("request asset: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	file, err := os.Create(path) //nolint:gosec // Path is built inside our own temp directory.
	if err != nil {
		return fmt.Errorf("create download file: %w", err)
	}

	var body io.Reader = resp.Body
	if resp.ContentLength > 0 && progress != nil {
		body = &progressReader{r: resp.Body, total: resp.ContentLength, report: progress}
	}

	written, err := io.Copy(file, body)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		return fmt.Errorf("close download file: %w", closeErr)
	}

	if err != nil {
		return fmt.Errorf("download asset: %w", err)
	}

	if resp.ContentLength > 0 && written != resp.ContentLength {
		return fmt.Errorf("%w: expected %d bytes, got %d", errIncomplete, resp.ContentLength, written)
	}

	return nil
}
