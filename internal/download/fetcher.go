// Package download materializes remote model artifacts on local storage.
// The one property everything else relies on: a failed fetch never
// leaves a partial file where the catalog would find it.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Progress receives transfer updates after each chunk. total is -1 when
// the source does not advertise a length. Progress is a side channel and
// has no effect on the result of the fetch.
type Progress func(completed, total int64)

const defaultChunkBytes = 1 << 20

// Fetcher streams remote artifacts to disk. Callers must serialize
// fetches for the same destination (the facade holds a per-name mutex);
// the fetcher itself assumes a single writer per destination.
type Fetcher struct {
	client     *http.Client
	chunkBytes int
	log        zerolog.Logger
}

// NewFetcher builds a fetcher with no overall timeout: artifact
// downloads are long-running and are bounded by the caller's context.
func NewFetcher(log zerolog.Logger) *Fetcher {
	return &Fetcher{
		client:     &http.Client{Timeout: 0},
		chunkBytes: defaultChunkBytes,
		log:        log,
	}
}

// Fetch downloads uri to dest. When dest already exists and force is
// false the fetch is an idempotent no-op and the returned bool is false.
// The payload is streamed in bounded chunks to a temporary file next to
// dest and renamed into place only on success; any failure removes the
// temporary file before the error surfaces.
func (f *Fetcher) Fetch(ctx context.Context, uri, dest string, force bool, progress Progress) (bool, error) {
	if _, err := os.Stat(dest); err == nil && !force {
		f.log.Debug().Str("dest", dest).Msg("artifact already present, skipping fetch")
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return false, fmt.Errorf("create artifact dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return false, transferError{uri: uri, err: err}
	}
	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return false, transferError{uri: uri, err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, transferError{uri: uri, err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	total := resp.ContentLength // -1 when unknown

	tmp := dest + ".partial"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return false, fmt.Errorf("create %s: %w", tmp, err)
	}

	var completed int64
	buf := make([]byte, f.chunkBytes)
	fail := func(cause error) (bool, error) {
		out.Close()
		os.Remove(tmp)
		downloadsTotal.WithLabelValues("error").Inc()
		return false, transferError{uri: uri, err: cause}
	}
	for {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return fail(werr)
			}
			completed += int64(n)
			downloadBytes.Add(float64(n))
			if progress != nil {
				progress(completed, total)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fail(rerr)
		}
	}
	if total >= 0 && completed != total {
		return fail(fmt.Errorf("short read: got %d of %d bytes", completed, total))
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		downloadsTotal.WithLabelValues("error").Inc()
		return false, transferError{uri: uri, err: err}
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		downloadsTotal.WithLabelValues("error").Inc()
		return false, transferError{uri: uri, err: err}
	}
	downloadsTotal.WithLabelValues("ok").Inc()
	f.log.Info().Str("dest", dest).Int64("bytes", completed).Dur("dur", time.Since(start)).Msg("artifact downloaded")
	return true, nil
}
