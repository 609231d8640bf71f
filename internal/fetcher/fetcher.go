// Package fetcher downloads county data exports over HTTP and FTP and parses
// the CSV, JSON, XLSX and ZIP payloads they arrive in.
package fetcher

import (
	"context"
	"io"
	"net/url"

	"github.com/rotisserie/eris"
)

// Fetcher downloads remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)

	// Probe checks that the URL is reachable without downloading it.
	Probe(ctx context.Context, url string) error
}

// Router dispatches to the FTP fetcher for ftp:// URLs and to the HTTP
// fetcher for everything else.
type Router struct {
	HTTP *HTTPFetcher
	FTP  *FTPFetcher
}

// NewRouter creates a Router over the given fetchers.
func NewRouter(h *HTTPFetcher, f *FTPFetcher) *Router {
	return &Router{HTTP: h, FTP: f}
}

func (r *Router) pick(rawURL string) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse url %q", rawURL)
	}
	if u.Scheme == "ftp" {
		if r.FTP == nil {
			return nil, eris.Errorf("fetcher: no ftp fetcher configured for %s", rawURL)
		}
		return r.FTP, nil
	}
	if r.HTTP == nil {
		return nil, eris.Errorf("fetcher: no http fetcher configured for %s", rawURL)
	}
	return r.HTTP, nil
}

// Download implements Fetcher.
func (r *Router) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	f, err := r.pick(rawURL)
	if err != nil {
		return nil, err
	}
	return f.Download(ctx, rawURL)
}

// DownloadToFile implements Fetcher.
func (r *Router) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	f, err := r.pick(rawURL)
	if err != nil {
		return 0, err
	}
	return f.DownloadToFile(ctx, rawURL, path)
}

// Probe implements Fetcher.
func (r *Router) Probe(ctx context.Context, rawURL string) error {
	f, err := r.pick(rawURL)
	if err != nil {
		return err
	}
	return f.Probe(ctx, rawURL)
}

// writeToFile copies body into a newly created file at path.
func writeToFile(body io.Reader, path string) (int64, error) {
	file, err := createFile(path)
	if err != nil {
		return 0, err
	}
	return copyAndClose(file, body)
}

// copyAndClose copies body into w and closes it. A close failure means the
// file may be incomplete and is reported like a write failure.
func copyAndClose(w io.WriteCloser, body io.Reader) (int64, error) {
	n, err := io.Copy(w, body)
	if err != nil {
		_ = w.Close()
		return n, eris.Wrap(err, "fetcher: write file")
	}
	if err := w.Close(); err != nil {
		return n, eris.Wrap(err, "fetcher: close file")
	}
	return n, nil
}
