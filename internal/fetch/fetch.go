// Package fetch downloads the source documents an extraction run reads
// (page dumps, table dumps, workbooks) over HTTP(S) or FTP.
package fetch

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds simultaneous downloads.
const DefaultConcurrency = 4

// Result records where one URL landed.
type Result struct {
	URL  string
	Path string
	Size int64
}

// Options configures FetchAll.
type Options struct {
	Concurrency int
	HTTP        HTTPOptions
	FTP         FTPOptions
}

// FetchAll downloads every URL into dir, naming each file after its
// last path segment. Downloads run concurrently; the first failure
// cancels the rest.
func FetchAll(ctx context.Context, urls []string, dir string, opts Options) ([]Result, error) {
	if len(urls) == 0 {
		return nil, eris.New("fetch: no urls given")
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "fetch: create dir %s", dir)
	}

	httpFetcher := NewHTTPFetcher(opts.HTTP)
	ftpFetcher := NewFTPFetcher(opts.FTP)

	results := make([]Result, len(urls))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, rawURL := range urls {
		g.Go(func() error {
			u, err := url.Parse(rawURL)
			if err != nil {
				return eris.Wrapf(err, "fetch: parse url %s", rawURL)
			}
			name := path.Base(u.Path)
			if name == "" || name == "." || name == "/" {
				return eris.Errorf("fetch: cannot derive a filename from %s", rawURL)
			}
			target := filepath.Join(dir, name)

			var n int64
			switch u.Scheme {
			case "http", "https":
				n, err = httpFetcher.DownloadToFile(ctx, rawURL, target)
			case "ftp":
				n, err = ftpFetcher.DownloadToFile(ctx, rawURL, target)
			default:
				return eris.Errorf("fetch: unsupported scheme %q in %s", u.Scheme, rawURL)
			}
			if err != nil {
				return err
			}

			results[i] = Result{URL: rawURL, Path: target, Size: n}
			zap.L().Info("fetch: downloaded",
				zap.String("url", rawURL),
				zap.String("path", target),
				zap.Int64("bytes", n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// placeFile copies r to path through a temp file in the same directory
// so the destination only ever holds a complete download.
func placeFile(path string, r io.Reader) (int64, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, eris.Wrapf(err, "fetch: create temp file in %s", dir)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return n, eris.Wrapf(err, "fetch: write %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return n, eris.Wrapf(err, "fetch: close %s", tmpName)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return n, eris.Wrapf(err, "fetch: chmod %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return n, eris.Wrapf(err, "fetch: rename %s", path)
	}
	return n, nil
}
