package httpclient

import (
	"compress/flate"
	"compress/gzip"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

const (
	EncodingGzip    = "gzip"
	EncodingDeflate = "deflate"
	EncodingBrotli  = "br"
)

// decodeBody wraps resp.Body according to Content-Encoding. Unknown or
// broken encodings fall back to the raw body.
func (c *Client) decodeBody(resp *http.Response) io.ReadCloser {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get(HeaderContentEncoding)))

	var r io.Reader
	switch encoding {
	case "", "identity":
		return resp.Body
	case EncodingGzip:
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			c.logger.Warn("bad gzip stream, returning raw body", slog.String("error", err.Error()))
			return resp.Body
		}
		r = gz
	case EncodingDeflate:
		r = flate.NewReader(resp.Body)
	case EncodingBrotli:
		r = brotli.NewReader(resp.Body)
	default:
		c.logger.Debug("unknown content encoding, returning raw body", slog.String("encoding", encoding))
		return resp.Body
	}

	// The transfer is decoded now; stale length headers would mislead callers.
	resp.Header.Del(HeaderContentEncoding)
	resp.ContentLength = -1
	return &decodedBody{Reader: r, body: resp.Body}
}

type decodedBody struct {
	io.Reader
	body io.Closer
}

func (d *decodedBody) Close() error {
	if c, ok := d.Reader.(io.Closer); ok {
		_ = c.Close()
	}
	return d.body.Close()
}

// limitedReader fails with ErrResponseTooLarge once more than limit bytes
// have been read.
type limitedReader struct {
	rc        io.ReadCloser
	remaining int64
}

func newLimitedReader(rc io.ReadCloser, limit int64) *limitedReader {
	return &limitedReader{rc: rc, remaining: limit}
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrResponseTooLarge
	}
	n, err := l.rc.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrResponseTooLarge
	}
	return n, err
}

func (l *limitedReader) Close() error {
	return l.rc.Close()
}
