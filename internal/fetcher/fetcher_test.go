package fetcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestRouter_Dispatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("via http"))
	}))
	defer srv.Close()

	r := NewRouter(fastHTTP(1), NewFTPFetcher(FTPOptions{}))

	f, err := r.pick("ftp://ftp.example.gov/parcels.zip")
	require.NoError(t, err)
	assert.IsType(t, &FTPFetcher{}, f)

	body, err := r.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	_ = body.Close()
	assert.Equal(t, "via http", string(data))
	assert.NoError(t, r.Probe(context.Background(), srv.URL))
}

func TestRouter_MissingFetcher(t *testing.T) {
	r := NewRouter(nil, nil)
	_, err := r.Download(context.Background(), "ftp://ftp.example.gov/a.csv")
	assert.Error(t, err)
	_, err = r.DownloadToFile(context.Background(), "https://example.gov/a.csv", "/tmp/x")
	assert.Error(t, err)
	assert.Error(t, r.Probe(context.Background(), "://bad"))
}

type closeFailWriter struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (w *closeFailWriter) Close() error {
	w.closed = true
	return w.closeErr
}

func TestCopyAndClose(t *testing.T) {
	w := &closeFailWriter{}
	n, err := copyAndClose(w, bytes.NewReader([]byte("parcel data")))
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)
	assert.True(t, w.closed)

	w = &closeFailWriter{closeErr: errors.New("disk full")}
	n, err = copyAndClose(w, bytes.NewReader([]byte("parcel data")))
	require.Error(t, err)
	assert.Equal(t, int64(11), n)
	assert.Contains(t, err.Error(), "close file")
	assert.Contains(t, err.Error(), "disk full")
}
